package repositories

import (
	"bakeshop/internal/models"
)

// OptionGroupRepository defines the interface for configurator catalog
// data access: option groups and the options they contain.
type OptionGroupRepository interface {
	GetByCategory(categoryID string) ([]models.OptionGroup, error)
	GetByID(id string) (*models.OptionGroup, error)
	Create(group *models.OptionGroup) error
	Update(group *models.OptionGroup) error
	Delete(id string) error
	SetOptionAvailability(optionID string, available bool) error
}
