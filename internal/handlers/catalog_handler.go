package handlers

import (
	"log"
	"strings"

	"bakeshop/internal/models"
	"bakeshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles HTTP requests for the configurator catalog:
// option groups and option availability.
type CatalogHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the public, read-only catalog routes.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/categories/:categoryId/groups", h.HandleGetGroupsByCategory)
	router.Get("/groups/:id", h.HandleGetGroupByID)
}

// RegisterAdminRoutes registers the catalog management routes. These are
// mounted behind the auth middleware.
func (h *CatalogHandler) RegisterAdminRoutes(router fiber.Router) {
	groupRoutes := router.Group("/groups")
	groupRoutes.Post("/", h.HandleCreateGroup)
	groupRoutes.Put("/:id", h.HandleUpdateGroup)
	groupRoutes.Delete("/:id", h.HandleDeleteGroup)

	router.Patch("/options/:id/availability", h.HandleSetOptionAvailability)
}

// HandleGetGroupsByCategory retrieves all option groups for a category.
func (h *CatalogHandler) HandleGetGroupsByCategory(c *fiber.Ctx) error {
	categoryID := c.Params("categoryId")
	groups, err := h.service.GroupsForCategory(categoryID)
	if err != nil {
		log.Printf("Error getting option groups for category %s: %v", categoryID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve option groups",
			"error":   err.Error(),
		})
	}
	return c.JSON(groups)
}

// HandleGetGroupByID retrieves a single option group.
func (h *CatalogHandler) HandleGetGroupByID(c *fiber.Ctx) error {
	groupID := c.Params("id")
	group, err := h.service.GetGroupByID(groupID)
	if err != nil {
		log.Printf("Error getting option group %s: %v", groupID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Option group not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve option group",
			"error":   err.Error(),
		})
	}
	return c.JSON(group)
}

// HandleCreateGroup creates a new option group with its options.
func (h *CatalogHandler) HandleCreateGroup(c *fiber.Ctx) error {
	var group models.OptionGroup
	if err := c.BodyParser(&group); err != nil {
		log.Printf("Error parsing option group request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(group); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}

	if err := h.service.CreateGroup(&group); err != nil {
		log.Printf("Error creating option group: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not create option group",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

// HandleUpdateGroup updates an existing option group.
func (h *CatalogHandler) HandleUpdateGroup(c *fiber.Ctx) error {
	var group models.OptionGroup
	if err := c.BodyParser(&group); err != nil {
		log.Printf("Error parsing option group request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	group.ID = c.Params("id")

	if err := h.service.UpdateGroup(&group); err != nil {
		log.Printf("Error updating option group %s: %v", group.ID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Option group not found",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not update option group",
			"error":   err.Error(),
		})
	}

	return c.JSON(group)
}

// HandleDeleteGroup deletes an option group by its ID.
func (h *CatalogHandler) HandleDeleteGroup(c *fiber.Ctx) error {
	groupID := c.Params("id")
	if err := h.service.DeleteGroup(groupID); err != nil {
		log.Printf("Error deleting option group %s: %v", groupID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Option group not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete option group",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Option group deleted successfully",
	})
}

// HandleSetOptionAvailability marks an option as available or unavailable.
func (h *CatalogHandler) HandleSetOptionAvailability(c *fiber.Ctx) error {
	optionID := c.Params("id")
	var body struct {
		IsAvailable *bool `json:"isAvailable"`
	}
	if err := c.BodyParser(&body); err != nil || body.IsAvailable == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "isAvailable is required",
		})
	}

	if err := h.service.SetOptionAvailability(optionID, *body.IsAvailable); err != nil {
		log.Printf("Error updating availability for option %s: %v", optionID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Option not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update option availability",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Option availability updated",
	})
}
