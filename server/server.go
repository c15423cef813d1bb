// Package server wires the account and content services into a fiber
// HTTP application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/Endy02/microservice/auth"
	"github.com/Endy02/microservice/blog"
	"github.com/Endy02/microservice/config"
)

// Server is the HTTP front of the module.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	logger *ZerologAdapter
}

// Dependencies carries the assembled services the server exposes.
type Dependencies struct {
	Sessions *auth.SessionManager
	Users    auth.Users
	Register *auth.RegisterUserHandler
	Activate *auth.ActivateAccountHandler
	Forgot   *auth.InitializePasswordResetHandler
	Reset    *auth.FinalizePasswordResetHandler
	Articles blog.Articles
}

func New(cfg *config.Config, logger *ZerologAdapter, deps Dependencies) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "microservice",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: errorHandler(logger),
	})

	app.Use(requestid.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authController := NewAuthController(deps.Sessions)
	authController.Logger = logger.Named("auth")
	authController.Users = deps.Users
	authController.Register = deps.Register
	authController.Activate = deps.Activate
	authController.Forgot = deps.Forgot
	authController.Reset = deps.Reset
	RegisterAuthRoutes(api, authController, cfg.Auth)

	articleController := NewArticleController(deps.Articles)
	articleController.Logger = logger.Named("blog")
	RegisterArticleRoutes(api, articleController, deps.Sessions.TokenService(), cfg.Auth)

	return &Server{app: app, cfg: cfg, logger: logger}
}

// App exposes the underlying fiber application, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.cfg.Server.Addr())
	return s.app.Listen(s.cfg.Server.Addr())
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(s.cfg.Server.ShutdownTimeout)
}

func errorHandler(logger *ZerologAdapter) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		} else {
			logger.Error("unhandled request error: %v", err)
		}

		return c.Status(code).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}
}
