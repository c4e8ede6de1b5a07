package services

import (
	"fmt"

	"bakeshop/internal/models"
	"bakeshop/internal/repositories"
)

// GroupCatalog is the option-group catalog collaborator: it supplies the
// group definitions for a category. Implementations may read a local
// repository or call a remote catalog service.
type GroupCatalog interface {
	GroupsForCategory(categoryID string) ([]models.OptionGroup, error)
}

// CatalogService handles the configurator catalog: option groups, their
// options and option availability.
type CatalogService struct {
	repo repositories.OptionGroupRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.OptionGroupRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// GroupsForCategory retrieves all option groups for a category. Implements
// the GroupCatalog collaborator for in-process use.
func (s *CatalogService) GroupsForCategory(categoryID string) ([]models.OptionGroup, error) {
	return s.repo.GetByCategory(categoryID)
}

// GetGroupByID retrieves a single option group.
func (s *CatalogService) GetGroupByID(id string) (*models.OptionGroup, error) {
	return s.repo.GetByID(id)
}

// CreateGroup creates a new option group after checking the selection-count
// bounds make sense.
func (s *CatalogService) CreateGroup(group *models.OptionGroup) error {
	if err := checkGroupBounds(group); err != nil {
		return err
	}
	return s.repo.Create(group)
}

// UpdateGroup updates an existing option group.
func (s *CatalogService) UpdateGroup(group *models.OptionGroup) error {
	if err := checkGroupBounds(group); err != nil {
		return err
	}
	return s.repo.Update(group)
}

// DeleteGroup deletes an option group by its ID.
func (s *CatalogService) DeleteGroup(id string) error {
	return s.repo.Delete(id)
}

// SetOptionAvailability marks an option as available or unavailable.
// Unavailable options stay renderable but can no longer be selected.
func (s *CatalogService) SetOptionAvailability(optionID string, available bool) error {
	return s.repo.SetOptionAvailability(optionID, available)
}

func checkGroupBounds(group *models.OptionGroup) error {
	if group.MaxSelection < 1 {
		return fmt.Errorf("group %s must allow at least one selection", group.Name)
	}
	if group.MinSelection < 0 {
		return fmt.Errorf("group %s has a negative minimum selection", group.Name)
	}
	if group.MinSelection > group.MaxSelection {
		return fmt.Errorf("group %s requires %d selections but allows only %d", group.Name, group.MinSelection, group.MaxSelection)
	}
	return nil
}
