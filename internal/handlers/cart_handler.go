package handlers

import (
	"log"
	"strings"

	"bakeshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the cart, the product configurator
// and checkout. Every route operates on the authenticated buyer's session.
type CartHandler struct {
	sessions *services.SessionManager
	products *services.ProductService
	catalog  services.GroupCatalog
	checkout *services.CheckoutService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(sessions *services.SessionManager, products *services.ProductService, catalog services.GroupCatalog, checkout *services.CheckoutService) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		products: products,
		catalog:  catalog,
		checkout: checkout,
	}
}

// RegisterRoutes registers the cart, configurator and checkout routes.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:productId", h.HandleSetQuantity)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)

	configuratorRoutes := router.Group("/configurator")
	configuratorRoutes.Post("/open", h.HandleOpenConfigurator)
	configuratorRoutes.Get("/", h.HandleGetConfigurator)
	configuratorRoutes.Post("/toggle", h.HandleToggle)

	router.Post("/checkout", h.HandleCheckout)
}

// buyerRef extracts the authenticated buyer's ID set by the auth middleware.
func buyerRef(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals("user_id").(string)
	return id, ok && id != ""
}

// cartView builds the standard cart response for a session.
func cartView(session *services.CartSession) fiber.Map {
	groups := session.Groups()
	return fiber.Map{
		"items":      session.Cart.Lines(),
		"totalItems": session.Cart.TotalItems(),
		"totalPrice": session.Cart.TotalPrice(),
		"grandTotal": services.CartTotal(session.Cart.Lines(), session.ConfiguredProductID(), session.Engine, groups),
	}
}

// HandleGetCart returns the buyer's cart lines and totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}
	return c.JSON(cartView(h.sessions.Session(buyer)))
}

// AddItemRequest represents the request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// HandleAddItem adds a product to the cart, merging the quantity onto an
// existing line for the same product.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.products.GetProductByID(req.ProductID)
	if err != nil {
		log.Printf("Error adding product %s to cart: %v", req.ProductID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not add product to cart",
			"error":   err.Error(),
		})
	}

	session := h.sessions.Session(buyer)
	outcome := session.Cart.Add(*product, req.Quantity)
	if outcome.Change == services.CartRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not add product to cart",
			"outcome": outcome,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"outcome": outcome,
		"cart":    cartView(session),
	})
}

// SetQuantityRequest represents the request body for a quantity change.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// HandleSetQuantity replaces a line's quantity. Zero or less removes the line.
func (h *CartHandler) HandleSetQuantity(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	var req SetQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	session := h.sessions.Session(buyer)
	outcome := session.Cart.SetQuantity(c.Params("productId"), req.Quantity)
	return c.JSON(fiber.Map{
		"outcome": outcome,
		"cart":    cartView(session),
	})
}

// HandleRemoveItem removes a cart line. Removing an absent line succeeds.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	session := h.sessions.Session(buyer)
	outcome := session.Cart.Remove(c.Params("productId"))
	return c.JSON(fiber.Map{
		"outcome": outcome,
		"cart":    cartView(session),
	})
}

// HandleClearCart empties the buyer's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	session := h.sessions.Session(buyer)
	session.Cart.Clear()
	return c.JSON(cartView(session))
}

// OpenConfiguratorRequest names the category whose option groups to load and
// the base product being configured.
type OpenConfiguratorRequest struct {
	CategoryID string `json:"categoryId"`
	ProductID  string `json:"productId"`
}

// HandleOpenConfigurator loads the option-group definitions for the
// configurable product into the session and ensures a single-unit cart line
// for it exists.
func (h *CartHandler) HandleOpenConfigurator(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	var req OpenConfiguratorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	product, err := h.products.GetProductByID(req.ProductID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not open configurator",
			"error":   err.Error(),
		})
	}
	if !product.Customizable {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Product is not configurable",
		})
	}

	groups, err := h.catalog.GroupsForCategory(req.CategoryID)
	if err != nil {
		log.Printf("Error loading option groups for category %s: %v", req.CategoryID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Could not load option groups",
			"error":   err.Error(),
		})
	}

	session := h.sessions.Session(buyer)
	session.OpenConfigurator(groups, product.ID)
	// One configured unit per session; repeat opens keep the existing line.
	if _, exists := session.Cart.Line(product.ID); !exists {
		session.Cart.Add(*product, 1)
	}

	return c.JSON(h.configuratorView(session))
}

// HandleGetConfigurator returns the current configurator state and pricing.
func (h *CartHandler) HandleGetConfigurator(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}
	return c.JSON(h.configuratorView(h.sessions.Session(buyer)))
}

// ToggleRequest represents one configurator selection event.
type ToggleRequest struct {
	GroupID  string `json:"groupId"`
	OptionID string `json:"optionId"`
}

// HandleToggle applies one selection toggle. Rejections come back with a
// 200 and an outcome describing the reason; the selection state is
// guaranteed unchanged on rejection.
func (h *CartHandler) HandleToggle(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	var req ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	session := h.sessions.Session(buyer)
	outcome := session.Engine.Toggle(session.Groups(), req.GroupID, req.OptionID)

	view := h.configuratorView(session)
	view["outcome"] = outcome
	return c.JSON(view)
}

func (h *CartHandler) configuratorView(session *services.CartSession) fiber.Map {
	groups := session.Groups()
	extras := session.Engine.ExtrasTotal(groups)

	view := fiber.Map{
		"groups":     groups,
		"selections": session.Engine.Selections(),
		"extras":     extras,
		"state":      session.State(),
	}
	if line, ok := session.Cart.Line(session.ConfiguredProductID()); ok {
		view["basePrice"] = line.UnitPriceSnapshot
		view["unitPrice"] = services.ConfiguredUnitPrice(line.UnitPriceSnapshot, session.Engine, groups)
	}
	return view
}

// HandleCheckout validates the session, builds the order payload and
// dispatches it to the order collaborator. Validation failures name the
// offending groups and never reach the collaborator; submission failures
// leave the cart and selections untouched for a retry.
func (h *CartHandler) HandleCheckout(c *fiber.Ctx) error {
	buyer, ok := buyerRef(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Buyer identity is missing"})
	}

	if h.checkout.IsSubmitting(buyer) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "A submission is already in progress",
		})
	}

	session := h.sessions.Session(buyer)
	payload, unmet, err := h.checkout.Prepare(session)
	if len(unmet) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Missing required selections",
			"groups":  unmet,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not prepare order",
			"error":   err.Error(),
		})
	}

	result := h.checkout.Submit(session, *payload)
	if !result.Submitted {
		log.Printf("Order submission failed for buyer %s: %s", buyer, result.Reason)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Order submission failed",
			"reason":  result.Reason,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"orderId": result.OrderID,
	})
}
