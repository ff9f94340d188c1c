package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"userhub/internal/handlers"
	"userhub/internal/middleware"
	"userhub/internal/models"
	"userhub/internal/repositories"
	"userhub/internal/services"
	"userhub/pkg/rabbitmq"

	"github.com/spf13/viper"
)

// NewApp assembles the Fiber application from the configured storage
// backend, session store and (optionally) RabbitMQ client. The returned
// client is nil when no broker URL is configured.
func NewApp() (*fiber.App, *rabbitmq.Client, error) {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("STORAGE_BACKEND", "file")
	viper.SetDefault("USERS_FILE", "data/users.json")
	viper.SetDefault("USERS_COOKIE", "users")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "data/users.db")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	backend := viper.GetString("STORAGE_BACKEND")

	// --- Storage backend selection ---
	var userRepo repositories.UserRepository
	switch backend {
	case "file":
		userRepo = repositories.NewFileUserRepository(viper.GetString("USERS_FILE"))
	case "cookie":
		userRepo = repositories.NewCookieUserRepository(viper.GetString("USERS_COOKIE"))
	case "database":
		db, err := openDatabase(viper.GetString("DATABASE_DRIVER"), viper.GetString("DATABASE_DSN"))
		if err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrate(&models.User{}); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		userRepo = repositories.NewGORMUserRepository(db)
	case "memory":
		userRepo = repositories.NewMockUserRepository()
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}

	// --- Optional RabbitMQ client ---
	var mqClient *rabbitmq.Client
	var events services.EventPublisher
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		mqClient = client
		events = client
	}

	// --- Sessions ---
	sessions := session.New(session.Config{
		KeyGenerator:   uuid.NewString,
		CookieHTTPOnly: true,
	})

	// --- Services ---
	userService := services.NewUserService(userRepo, events)
	authService := services.NewAuthService()

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, sessions)
	authHandler := handlers.NewAuthHandler(authService, sessions)

	// --- Fiber app ---
	engine := html.New("./views", ".html")
	app := fiber.New(fiber.Config{
		Views:       engine,
		ViewsLayout: "layouts/main",
	})

	// --- Middleware ---
	app.Use(logger.New())
	app.Use(middleware.MethodOverride())

	// --- Routes ---
	authHandler.RegisterRoutes(app)

	// Only the cookie variant gates the listing page behind a login; the
	// file variant runs with no auth at all. Other routes are never gated.
	var listGuards []fiber.Handler
	if backend == "cookie" {
		listGuards = append(listGuards, middleware.LoginRequired(sessions, authService))
	}
	userHandler.RegisterRoutes(app, listGuards...)

	// --- Health check endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"time":    time.Now().Format(time.RFC3339),
			"backend": backend,
		})
	})

	return app, mqClient, nil
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func main() {
	app, mqClient, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	if mqClient != nil {
		defer mqClient.Close()

		// Log user lifecycle events as they come back off the queue.
		go func() {
			log.Println("Starting RabbitMQ consumer for user events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received user event (tag %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeUserEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
