package repositories

import (
	"fmt"

	"bakeshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOptionGroupRepository is a GORM implementation of OptionGroupRepository.
type GORMOptionGroupRepository struct {
	db *gorm.DB
}

// NewGORMOptionGroupRepository creates a new instance of GORMOptionGroupRepository.
func NewGORMOptionGroupRepository(db *gorm.DB) *GORMOptionGroupRepository {
	return &GORMOptionGroupRepository{
		db: db,
	}
}

// GetByCategory retrieves all option groups for a category, options included.
func (r *GORMOptionGroupRepository) GetByCategory(categoryID string) ([]models.OptionGroup, error) {
	var groups []models.OptionGroup
	if err := r.db.Preload("Options").Where("category_id = ?", categoryID).Order("created_at").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to get option groups for category %s: %w", categoryID, err)
	}
	return groups, nil
}

// GetByID retrieves a single option group by its ID.
func (r *GORMOptionGroupRepository) GetByID(id string) (*models.OptionGroup, error) {
	var group models.OptionGroup
	if err := r.db.Preload("Options").First(&group, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("option group with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get option group by ID %s: %w", id, err)
	}
	return &group, nil
}

// Create creates a new option group with its options.
func (r *GORMOptionGroupRepository) Create(group *models.OptionGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	for i := range group.Options {
		if group.Options[i].ID == "" {
			group.Options[i].ID = uuid.New().String()
		}
		group.Options[i].GroupID = group.ID
	}
	if err := r.db.Create(group).Error; err != nil {
		return fmt.Errorf("failed to create option group: %w", err)
	}
	return nil
}

// Update updates an existing option group and its options.
func (r *GORMOptionGroupRepository) Update(group *models.OptionGroup) error {
	res := r.db.Save(group)
	if res.Error != nil {
		return fmt.Errorf("failed to update option group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("option group with ID %s not found for update", group.ID)
	}
	return nil
}

// Delete deletes an option group and its options by group ID.
func (r *GORMOptionGroupRepository) Delete(id string) error {
	if err := r.db.Delete(&models.Option{}, "group_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete options for group %s: %w", id, err)
	}
	res := r.db.Delete(&models.OptionGroup{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete option group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("option group with ID %s not found for deletion", id)
	}
	return nil
}

// SetOptionAvailability flips the availability flag on a single option.
func (r *GORMOptionGroupRepository) SetOptionAvailability(optionID string, available bool) error {
	res := r.db.Model(&models.Option{}).Where("id = ?", optionID).Update("is_available", available)
	if res.Error != nil {
		return fmt.Errorf("failed to update availability for option %s: %w", optionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("option with ID %s not found for availability update", optionID)
	}
	return nil
}
