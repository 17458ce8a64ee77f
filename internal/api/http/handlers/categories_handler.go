package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/schema"
)

// CategoriesHandler exposes the category schema registry.
type CategoriesHandler struct {
	registry *schema.Registry
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(registry *schema.Registry) *CategoriesHandler {
	return &CategoriesHandler{registry: registry}
}

// List GET /categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories := h.registry.Categories()
	schemas := make([]domain.FieldSchema, 0, len(categories))
	for _, category := range categories {
		s, err := h.registry.SchemaFor(category)
		if err != nil {
			return err
		}
		schemas = append(schemas, s)
	}
	return c.JSON(fiber.Map{"data": schemas})
}

// Get GET /categories/:category.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	s, err := h.registry.SchemaFor(domain.TicketCategory(c.Params("category")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": s})
}
