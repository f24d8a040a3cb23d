package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusCancelled,
}

// ParseOrderStatus matches s against the known statuses, ignoring case.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range orderStatuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name         string    `gorm:"not null"                  json:"name"`
	Surname      string    `gorm:"not null"                  json:"surname"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	Role         string    `gorm:"not null;default:user"     json:"role"`
	CreatedAt    time.Time `                                 json:"createdAt"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"            json:"id"`
	Name        string          `gorm:"not null"                            json:"name"`
	Description string          `gorm:"not null"                            json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	ImageURL    string          `gorm:"not null"                            json:"imageUrl"`
	Featured    bool            `gorm:"not null;default:false;index"        json:"featured"`
	CreatedAt   time.Time       `                                           json:"createdAt"`
	UpdatedAt   time.Time       `                                           json:"updatedAt"`
}

type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement"          json:"id"`
	UserID    uint        `gorm:"index;not null"                    json:"userId"`
	Status    OrderStatus `gorm:"type:varchar(16);not null"         json:"status"`
	CreatedAt time.Time   `gorm:"index"                             json:"createdAt"`
	Items     []OrderItem `gorm:"foreignKey:OrderID"                json:"items"`
	User      *User       `gorm:"foreignKey:UserID"                 json:"user,omitempty"`
}

// OrderItem keeps a weak reference to its product; Price is the unit price
// captured when the order was placed.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	OrderID   uint            `gorm:"index;not null"               json:"orderId"`
	ProductID uint            `gorm:"index;not null"               json:"productId"`
	Quantity  int             `gorm:"not null;check:quantity > 0"  json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"price"`
	Product   *Product        `gorm:"foreignKey:ProductID"         json:"product,omitempty"`
}

type Message struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   uint      `gorm:"index;not null"           json:"senderId"`
	ReceiverID uint      `gorm:"index;not null"           json:"receiverId"`
	Content    string    `gorm:"type:text;not null"       json:"content"`
	CreatedAt  time.Time `gorm:"index"                    json:"createdAt"`
	Sender     *User     `gorm:"foreignKey:SenderID"      json:"sender,omitempty"`
	Receiver   *User     `gorm:"foreignKey:ReceiverID"    json:"receiver,omitempty"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"            json:"id"`
	Token     string `gorm:"uniqueIndex;not null"  json:"-"`
	UserID    uint   `gorm:"index;not null"        json:"user_id"`
	JTI       string `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt int64  `gorm:"not null"              json:"expires_at"`
	Revoked   bool   `gorm:"default:false"         json:"revoked"`
}

func All() []any {
	return []any{&User{}, &Product{}, &Order{}, &OrderItem{}, &Message{}, &RefreshToken{}}
}
