package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type CartItem struct {
	ProductID uint            `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	Items []CartItem `json:"items"`
}

// UpdateOrderStatusRequest accepts the id in the body for clients that do
// not put it in the path.
type UpdateOrderStatusRequest struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

type ProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	ImageURL    string           `json:"imageUrl"`
	Featured    bool             `json:"featured"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ProfileRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

type SendMessageRequest struct {
	ReceiverID uint   `json:"receiverId"`
	Content    string `json:"content"`
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

type UserSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

type UserResponse struct {
	UserSummary
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrderItemResponse struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type OrderResponse struct {
	ID        uint                `json:"id"`
	UserID    uint                `json:"userId"`
	Status    models.OrderStatus  `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	Items     []OrderItemResponse `json:"items"`
	User      *UserSummary        `json:"user,omitempty"`
}

type MessageResponse struct {
	ID         uint         `json:"id"`
	SenderID   uint         `json:"senderId"`
	ReceiverID uint         `json:"receiverId"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"createdAt"`
	Sender     *UserSummary `json:"sender,omitempty"`
	Receiver   *UserSummary `json:"receiver,omitempty"`
}

func NewUserSummary(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Surname: u.Surname, Email: u.Email}
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{UserSummary: *NewUserSummary(u), Role: u.Role, CreatedAt: u.CreatedAt}
}

func NewOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		Items:     make([]OrderItemResponse, 0, len(o.Items)),
		User:      NewUserSummary(o.User),
	}
	for _, it := range o.Items {
		item := OrderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
		if it.Product != nil {
			item.ProductName = it.Product.Name
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

func NewOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

func NewMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		Sender:     NewUserSummary(m.Sender),
		Receiver:   NewUserSummary(m.Receiver),
	}
}

func NewMessageResponses(msgs []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewMessageResponse(&msgs[i]))
	}
	return out
}

func NewUserSummaries(users []models.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, *NewUserSummary(&users[i]))
	}
	return out
}
