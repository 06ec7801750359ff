package rest

import (
	"github.com/vscoffline/mirror-backend/internal/handler"
	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const BodyLimit = 10 * 1024 * 1024

// HandlerSet groups the route handlers the server mounts.
type HandlerSet struct {
	UpdateHandler     *handler.UpdateHandler
	GalleryHandler    *handler.GalleryHandler
	BrowseHandler     *handler.BrowseHandler
	MetricsHandler    *handler.MetricsHandler
	HeathCheckHandler *handler.HeathCheckHandler
}

func NewRouter() *fiber.App {

	router := fiber.New(fiber.Config{
		AppName:     "mirror-backend",
		BodyLimit:   BodyLimit,
		ProxyHeader: fiber.HeaderXForwardedFor,

		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,

		ErrorHandler: handler.Error,
	})

	return router
}

func InitRoutes(router *fiber.App, handlerSet *HandlerSet) {

	router.Use(fiberzap.New(fiberzap.Config{
		Logger: zap.L(),
		SkipURIs: []string{
			"/metrics",
			"/health",
		},
	}))

	r := router.Group("/")

	handlerSet.UpdateHandler.Register(r)

	handlerSet.GalleryHandler.Register(r)

	handlerSet.MetricsHandler.Register(r)

	handlerSet.HeathCheckHandler.Register(r)

	handlerSet.BrowseHandler.Register(r)
}
