package http

import "github.com/labstack/echo/v4"

// Handler registers a group of routes.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// RoutesFunc adapts a plain function to Handler.
type RoutesFunc func(e *echo.Echo)

func (f RoutesFunc) RegisterRoutes(e *echo.Echo) { f(e) }

// Handlers registers each non-nil handler in order.
type Handlers []Handler

func (hs Handlers) RegisterRoutes(e *echo.Echo) {
	for _, h := range hs {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
