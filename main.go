package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"

	"bakeshop/internal/clients"
	"bakeshop/internal/handlers"
	"bakeshop/internal/middleware"
	"bakeshop/internal/models"
	"bakeshop/internal/repositories"
	"bakeshop/internal/services"
	"bakeshop/internal/storage"
	"bakeshop/pkg/rabbitmq"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "") // Postgres DSN; empty falls back to a local SQLite file
	viper.SetDefault("SQLITE_PATH", "bakeshop.db")
	viper.SetDefault("JWT_SECRET", "change_me_in_production")
	viper.SetDefault("RABBITMQ_URL", "") // empty disables order events
	viper.SetDefault("ORDER_SERVICE_URL", "")   // empty submits orders in-process
	viper.SetDefault("CATALOG_SERVICE_URL", "") // empty reads option groups from the local database
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")

	// --- Database ---
	var db *gorm.DB
	var err error
	if dsn := viper.GetString("DATABASE_DSN"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	} else {
		db, err = gorm.Open(sqlite.Open(viper.GetString("SQLITE_PATH")), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.OptionGroup{}, &models.Option{}, &models.Order{}, &models.User{}, &storage.KVEntry{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ (optional) ---
	var mqClient *rabbitmq.Client
	if mqURL := viper.GetString("RABBITMQ_URL"); mqURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: mqURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, order events disabled")
	}

	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	groupRepo := repositories.NewGORMOptionGroupRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	seedCatalog(productRepo, groupRepo)

	// --- Services ---
	var publisher services.EventPublisher
	if mqClient != nil {
		publisher = mqClient
	}

	productService := services.NewProductService(productRepo)
	catalogService := services.NewCatalogService(groupRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, publisher)
	authService := services.NewAuthService(userRepo, viper.GetString("JWT_SECRET"))

	// The checkout service talks to collaborators through interfaces; remote
	// URLs swap the in-process implementations for HTTP ones.
	var submitter services.OrderSubmitter = orderService
	if url := viper.GetString("ORDER_SERVICE_URL"); url != "" {
		submitter = clients.NewHTTPOrderSubmitter(url)
	}
	var groupCatalog services.GroupCatalog = catalogService
	if url := viper.GetString("CATALOG_SERVICE_URL"); url != "" {
		groupCatalog = clients.NewHTTPGroupCatalog(url)
	}

	sessionManager := services.NewSessionManager(storage.NewGormStore(db))
	checkoutService := services.NewCheckoutService(submitter)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(sessionManager, productService, groupCatalog, checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1)
	catalogHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterAdminRoutes(protectedRoutes)
	catalogHandler.RegisterAdminRoutes(protectedRoutes)
	cartHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Order event consumer ---
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for order events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received order event (tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeOrderEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

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

// seedCatalog populates an empty database with the bakery's products and the
// custom cake's option groups.
func seedCatalog(productRepo repositories.ProductRepository, groupRepo repositories.OptionGroupRepository) {
	existing, err := productRepo.GetAll()
	if err != nil || len(existing) > 0 {
		return
	}

	price := func(s string) decimal.Decimal {
		d, _ := decimal.NewFromString(s)
		return d
	}

	customCategory := "tortas-personalizadas"
	products := []models.Product{
		{ID: "prod-custom-cake", Name: "Torta Personalizada", Description: "Base cake, configured to order", UnitPrice: price("20.00"), CategoryLabel: "Tortas Personalizadas", Customizable: true},
		{ID: "prod-choco-cake", Name: "Torta de Chocolate", Description: "Classic chocolate cake", UnitPrice: price("15.00"), CategoryLabel: "Tortas"},
		{ID: "prod-cupcake", Name: "Cupcake de Vainilla", Description: "Single vanilla cupcake", UnitPrice: price("2.50"), CategoryLabel: "Cupcakes"},
	}
	for i := range products {
		if err := productRepo.Create(&products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
		}
	}

	groups := []models.OptionGroup{
		{
			ID: "grp-relleno", CategoryID: customCategory, Name: "Relleno", MinSelection: 1, MaxSelection: 1,
			Options: []models.Option{
				{ID: "opt-crema", Name: "Crema Chantilly", PriceExtra: price("0.00"), IsAvailable: true},
				{ID: "opt-manjar", Name: "Manjar", PriceExtra: price("3.50"), IsAvailable: true},
			},
		},
		{
			ID: "grp-pisos", CategoryID: customCategory, Name: "Pisos", MinSelection: 0, MaxSelection: 2,
			Options: []models.Option{
				{ID: "opt-piso-extra", Name: "Piso Extra", PriceExtra: price("5.00"), IsAvailable: true},
				{ID: "opt-piso-doble", Name: "Piso Doble", PriceExtra: price("9.00"), IsAvailable: true},
			},
		},
		{
			ID: "grp-decoracion", CategoryID: customCategory, Name: "Decoración", MinSelection: 0, MaxSelection: 3,
			Options: []models.Option{
				{ID: "opt-fresas", Name: "Fresas", PriceExtra: price("2.00"), IsAvailable: true},
				{ID: "opt-chispas", Name: "Chispas de Chocolate", PriceExtra: price("1.00"), IsAvailable: true},
				{ID: "opt-flores", Name: "Flores de Azúcar", PriceExtra: price("4.00"), IsAvailable: false},
			},
		},
	}
	for i := range groups {
		if err := groupRepo.Create(&groups[i]); err != nil {
			log.Printf("Error seeding option group %s: %v", groups[i].Name, err)
		}
	}
	log.Printf("Seeded %d products and %d option groups", len(products), len(groups))
}
