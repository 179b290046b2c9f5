// Package server exposes the HTTP API: authentication, statement upload,
// transaction queries, CSV export and the voucher catalogue.
package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/container"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app    *fiber.App
	deps   *container.Container
	logger logging.Logger
}

// New builds the HTTP server with all routes registered.
func New(deps *container.Container) *Server {
	cfg := deps.Config()

	app := fiber.New(fiber.Config{
		AppName:   "himalai-expense-tracker",
		BodyLimit: cfg.Upload.MaxSizeMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	s := &Server{
		app:    app,
		deps:   deps,
		logger: deps.Logger(),
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)

	authGroup := s.app.Group("/auth")
	authGroup.Post("/register", s.handleRegister)
	authGroup.Post("/verify", s.handleVerify)
	authGroup.Post("/login", s.handleLogin)

	protected := s.app.Group("/", s.authMiddleware())

	protected.Get("/users/me", s.handleMe)

	protected.Post("/files/upload", s.handleUpload)

	tx := protected.Group("/transactions")
	tx.Get("/", s.handleListTransactions)
	tx.Post("/", s.handleCreateTransaction)
	tx.Get("/export", s.handleExportTransactions)
	tx.Delete("/:id", s.handleDeleteTransaction)

	vouchers := protected.Group("/vouchers")
	vouchers.Get("/", s.handleListVouchers)
	vouchers.Post("/", s.handleCreateVoucher)
	vouchers.Post("/redeem", s.handleRedeemVoucher)
}

// Listen starts serving on the configured address.
func (s *Server) Listen() error {
	cfg := s.deps.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.logger.Info("HTTP server listening", logging.Field{Key: "addr", Value: addr})
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the Fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// authMiddleware validates the bearer token and stores the caller's identity
// in request locals.
func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			return fail(c, fiber.StatusUnauthorized, "authorization token required")
		}
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := s.deps.JWT().Verify(token)
		if err != nil {
			return fail(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals("userID", claims.UserID)
		c.Locals("isAdmin", claims.IsAdmin)
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("userID").(uuid.UUID)
	return id
}

func isAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals("isAdmin").(bool)
	return admin
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
