package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"bakeshop/internal/handlers"
	"bakeshop/internal/middleware"
	"bakeshop/internal/models"
	"bakeshop/internal/repositories"
	"bakeshop/internal/services"
	"bakeshop/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// memoryDSN returns a named shared in-memory SQLite DSN so every pooled
// connection sees the same database while tests stay isolated from each
// other.
func memoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// setupApp builds a Fiber app over an in-memory SQLite database with the
// full handler stack, the in-process order submitter and a seeded catalog.
func setupApp(dbName string) (*fiber.App, error) {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	db, err := gorm.Open(sqlite.Open(memoryDSN(dbName)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(&models.Product{}, &models.OptionGroup{}, &models.Option{}, &models.Order{}, &models.User{}, &storage.KVEntry{})
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	productRepo := repositories.NewGORMProductRepository(db)
	groupRepo := repositories.NewGORMOptionGroupRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	productService := services.NewProductService(productRepo)
	catalogService := services.NewCatalogService(groupRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, nil) // nil publisher: no broker in tests
	authService := services.NewAuthService(userRepo, jwtSecret)

	sessionManager := services.NewSessionManager(storage.NewGormStore(db))
	checkoutService := services.NewCheckoutService(orderService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	productHandler := handlers.NewProductHandler(productService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1)
	catalogHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterAdminRoutes(protectedRoutes)
	catalogHandler.RegisterAdminRoutes(protectedRoutes)
	handlers.NewCartHandler(sessionManager, productService, catalogService, checkoutService).RegisterRoutes(protectedRoutes)
	handlers.NewOrderHandler(orderService).RegisterRoutes(protectedRoutes)

	if err := seedCatalogForTest(productRepo, groupRepo); err != nil {
		return nil, err
	}
	return app, nil
}

func seedCatalogForTest(productRepo repositories.ProductRepository, groupRepo repositories.OptionGroupRepository) error {
	products := []models.Product{
		{ID: "p-cake", Name: "Torta Personalizada", UnitPrice: dec("20.00"), CategoryLabel: "Tortas Personalizadas", Customizable: true},
		{ID: "p-cupcake", Name: "Cupcake de Vainilla", UnitPrice: dec("2.50"), CategoryLabel: "Cupcakes"},
	}
	for i := range products {
		if err := productRepo.Create(&products[i]); err != nil {
			return err
		}
	}

	groups := []models.OptionGroup{
		{
			ID: "g-relleno", CategoryID: "cat-custom", Name: "Relleno", MinSelection: 1, MaxSelection: 1,
			Options: []models.Option{
				{ID: "o-crema", Name: "Crema Chantilly", PriceExtra: dec("0.00"), IsAvailable: true},
				{ID: "o-manjar", Name: "Manjar", PriceExtra: dec("3.50"), IsAvailable: true},
			},
		},
		{
			ID: "g-pisos", CategoryID: "cat-custom", Name: "Pisos", MinSelection: 0, MaxSelection: 2,
			Options: []models.Option{
				{ID: "o-piso-extra", Name: "Piso Extra", PriceExtra: dec("5.00"), IsAvailable: true},
				{ID: "o-flores", Name: "Flores de Azúcar", PriceExtra: dec("4.00"), IsAvailable: false},
			},
		},
	}
	for i := range groups {
		if err := groupRepo.Create(&groups[i]); err != nil {
			return err
		}
	}
	return nil
}

// TestMain suppresses logging during tests for cleaner output.
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	fields := make(map[string]json.RawMessage)
	if len(raw) > 0 && raw[0] == '{' {
		assert.NoError(t, json.Unmarshal(raw, &fields))
	}
	return resp.StatusCode, fields
}

func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, fields := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, status)

	var token string
	assert.NoError(t, json.Unmarshal(fields["token"], &token))
	assert.NotEmpty(t, token)
	return token
}

func TestAuthRequired(t *testing.T) {
	app, err := setupApp("authcheck")
	assert.NoError(t, err)

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/checkout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCatalogReadsArePublic(t *testing.T) {
	app, err := setupApp("publiccatalog")
	assert.NoError(t, err)

	// Browsing products and option groups needs no token.
	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/products/", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, fields := doJSON(t, app, http.MethodGet, "/api/v1/products/p-cake", "", nil)
	assert.Equal(t, http.StatusOK, status)
	var name string
	assert.NoError(t, json.Unmarshal(fields["name"], &name))
	assert.Equal(t, "Torta Personalizada", name)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/categories/cat-custom/groups", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/groups/g-relleno", "", nil)
	assert.Equal(t, http.StatusOK, status)

	// Writes stay behind the auth middleware.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/products/", "", map[string]string{"name": "Tarta Nueva"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodDelete, "/api/v1/groups/g-relleno", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPatch, "/api/v1/options/o-flores/availability", "", map[string]bool{"isAvailable": true})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCartFlow(t *testing.T) {
	app, err := setupApp("cartflow")
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "cartbuyer")

	// Add twice: quantities merge onto one line.
	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"productId": "p-cupcake", "quantity": 2,
	})
	assert.Equal(t, http.StatusCreated, status)

	status, fields := doJSON(t, app, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"productId": "p-cupcake", "quantity": 3,
	})
	assert.Equal(t, http.StatusCreated, status)

	var cart struct {
		Items      []models.CartLine `json:"items"`
		TotalItems int               `json:"totalItems"`
		TotalPrice decimal.Decimal   `json:"totalPrice"`
	}
	assert.NoError(t, json.Unmarshal(fields["cart"], &cart))
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(dec("12.50")))

	// Unknown products are a 404, not a new line.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"productId": "p-ghost", "quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, status)

	// Setting quantity to zero removes the line.
	status, fields = doJSON(t, app, http.MethodPatch, "/api/v1/cart/items/p-cupcake", token, map[string]interface{}{
		"quantity": 0,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.NoError(t, json.Unmarshal(fields["cart"], &cart))
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestConfiguratorAndCheckoutFlow(t *testing.T) {
	app, err := setupApp("checkoutflow")
	assert.NoError(t, err)
	token := registerAndLogin(t, app, "cakebuyer")

	// Opening the configurator loads the groups and puts one cake unit in
	// the cart.
	status, fields := doJSON(t, app, http.MethodPost, "/api/v1/configurator/open", token, map[string]string{
		"categoryId": "cat-custom", "productId": "p-cake",
	})
	assert.Equal(t, http.StatusOK, status)

	var groups []models.OptionGroup
	assert.NoError(t, json.Unmarshal(fields["groups"], &groups))
	assert.Len(t, groups, 2)

	var unitPrice decimal.Decimal
	assert.NoError(t, json.Unmarshal(fields["unitPrice"], &unitPrice))
	assert.True(t, unitPrice.Equal(dec("20.00")))

	// Checkout before satisfying "Relleno" is rejected and names the group.
	status, fields = doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var unmet []services.UnmetRequirement
	assert.NoError(t, json.Unmarshal(fields["groups"], &unmet))
	assert.Len(t, unmet, 1)
	assert.Equal(t, "Relleno", unmet[0].GroupName)

	// Unavailable options are rejected without changing state.
	status, fields = doJSON(t, app, http.MethodPost, "/api/v1/configurator/toggle", token, map[string]string{
		"groupId": "g-pisos", "optionId": "o-flores",
	})
	assert.Equal(t, http.StatusOK, status)
	var outcome services.ToggleOutcome
	assert.NoError(t, json.Unmarshal(fields["outcome"], &outcome))
	assert.Equal(t, services.ToggleRejected, outcome.Status)

	// Select filling and an extra layer: 20.00 + 3.50 + 5.00.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/configurator/toggle", token, map[string]string{
		"groupId": "g-relleno", "optionId": "o-manjar",
	})
	assert.Equal(t, http.StatusOK, status)

	status, fields = doJSON(t, app, http.MethodPost, "/api/v1/configurator/toggle", token, map[string]string{
		"groupId": "g-pisos", "optionId": "o-piso-extra",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.NoError(t, json.Unmarshal(fields["unitPrice"], &unitPrice))
	assert.True(t, unitPrice.Equal(dec("28.50")))

	// Checkout now succeeds, creates the order and clears the session.
	status, fields = doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, nil)
	assert.Equal(t, http.StatusCreated, status)

	var orderID string
	assert.NoError(t, json.Unmarshal(fields["orderId"], &orderID))
	assert.NotEmpty(t, orderID)

	status, fields = doJSON(t, app, http.MethodGet, "/api/v1/cart/", token, nil)
	assert.Equal(t, http.StatusOK, status)
	var totalItems int
	assert.NoError(t, json.Unmarshal(fields["totalItems"], &totalItems))
	assert.Equal(t, 0, totalItems)

	// The order shows up under the buyer's orders with its customizations.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/mine", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []models.Order
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.True(t, orders[0].TotalAmount.Equal(dec("28.50")))
	assert.Len(t, orders[0].Items, 1)
	assert.Len(t, orders[0].Items[0].Customizations, 2)
}

func TestCheckoutFailurePreservesCart(t *testing.T) {
	// Build an app whose submitter always fails to verify the cart
	// survives a failed submission.
	db, err := gorm.Open(sqlite.Open(memoryDSN("failedcheckout")), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Product{}, &models.OptionGroup{}, &models.Option{}, &models.User{}, &storage.KVEntry{}))

	productRepo := repositories.NewGORMProductRepository(db)
	groupRepo := repositories.NewGORMOptionGroupRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	assert.NoError(t, seedCatalogForTest(productRepo, groupRepo))

	productService := services.NewProductService(productRepo)
	catalogService := services.NewCatalogService(groupRepo)
	authService := services.NewAuthService(userRepo, "test_jwt_secret")
	sessionManager := services.NewSessionManager(storage.NewGormStore(db))
	checkoutService := services.NewCheckoutService(failingSubmitter{})

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	handlers.NewCartHandler(sessionManager, productService, catalogService, checkoutService).RegisterRoutes(protectedRoutes)

	token := registerAndLogin(t, app, "unluckybuyer")

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/configurator/open", token, map[string]string{
		"categoryId": "cat-custom", "productId": "p-cake",
	})
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/configurator/toggle", token, map[string]string{
		"groupId": "g-relleno", "optionId": "o-crema",
	})
	assert.Equal(t, http.StatusOK, status)

	status, fields := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, nil)
	assert.Equal(t, http.StatusBadGateway, status)
	var reason string
	assert.NoError(t, json.Unmarshal(fields["reason"], &reason))
	assert.Contains(t, reason, "unreachable")

	// Cart and selections survive for a retry.
	status, fields = doJSON(t, app, http.MethodGet, "/api/v1/cart/", token, nil)
	assert.Equal(t, http.StatusOK, status)
	var totalItems int
	assert.NoError(t, json.Unmarshal(fields["totalItems"], &totalItems))
	assert.Equal(t, 1, totalItems)

	status, fields = doJSON(t, app, http.MethodGet, "/api/v1/configurator/", token, nil)
	assert.Equal(t, http.StatusOK, status)
	var selections map[string][]string
	assert.NoError(t, json.Unmarshal(fields["selections"], &selections))
	assert.Equal(t, []string{"o-crema"}, selections["g-relleno"])
}

type failingSubmitter struct{}

func (failingSubmitter) Submit(models.OrderPayload) (string, error) {
	return "", fmt.Errorf("order service unreachable")
}
