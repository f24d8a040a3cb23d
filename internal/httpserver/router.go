package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/metrics"
)

type Deps struct {
	DB     *gorm.DB
	Tokens *auth.Tokens

	Orders   *OrderHandler
	Products *ProductHandler
	Auth     *AuthHandler
	Profile  *ProfileHandler
	Messages *MessageHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metrics.Handler())

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.Auth.Register)
	v1.POST("/login", d.Auth.Login)
	v1.POST("/refresh", d.Auth.Refresh)
	v1.POST("/logout", d.Auth.Logout)

	products := v1.Group("/products")
	products.GET("", d.Products.GetProducts)
	products.GET("/search", d.Products.Search)
	products.GET("/:id", d.Products.GetProduct)

	authn := auth.Authenticate(d.Tokens, auth.DefaultLookup)

	v1.POST("/orders", d.Orders.PlaceOrder, authn)
	v1.GET("/orders", d.Orders.ListMine, authn)

	v1.GET("/profile", d.Profile.Get, authn)
	v1.PUT("/profile", d.Profile.Update, authn)

	messages := v1.Group("/messages")
	messages.GET("", d.Messages.List, authn)
	messages.POST("", d.Messages.Send, authn)
	messages.GET("/users", d.Messages.Users, authn)
	messages.GET("/ws", d.Messages.Socket, auth.Authenticate(d.Tokens, auth.SocketLookup))

	admin := v1.Group("/admin", authn, auth.RequireAdmin)
	admin.GET("/products", d.Products.GetProducts)
	admin.POST("/products", d.Products.CreateProduct)
	admin.PUT("/products/:id", d.Products.UpdateProduct)
	admin.DELETE("/products/:id", d.Products.DeleteProduct)
	admin.GET("/orders", d.Orders.ListAll)
	admin.PUT("/orders", d.Orders.UpdateStatus)
	admin.PUT("/orders/:id", d.Orders.UpdateStatus)
}
