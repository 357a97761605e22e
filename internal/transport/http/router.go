package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/smart_inventory/internal/handlers"
	"github.com/Skotchmaster/smart_inventory/internal/jwtmiddleware"
)

type Deps struct {
	AuthHandler      *handlers.AuthHandler
	InventoryHandler *handlers.InventoryHandler
	JWT              *jwtmiddleware.JWTMiddleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)

	inventory := e.Group("/api/inventory", d.JWT.RequireAuth)
	inventory.POST("", d.InventoryHandler.CreateItem)
	inventory.GET("", d.InventoryHandler.ListItems)
}
