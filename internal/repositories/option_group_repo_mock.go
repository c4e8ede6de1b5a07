package repositories

import (
	"fmt"
	"sort"
	"sync"

	"bakeshop/internal/models"

	"github.com/google/uuid"
)

// MockOptionGroupRepository is an in-memory implementation of
// OptionGroupRepository.
type MockOptionGroupRepository struct {
	groups map[string]models.OptionGroup
	mu     sync.RWMutex
}

// NewMockOptionGroupRepository creates a new instance of MockOptionGroupRepository.
func NewMockOptionGroupRepository() *MockOptionGroupRepository {
	return &MockOptionGroupRepository{
		groups: make(map[string]models.OptionGroup),
	}
}

// GetByCategory returns all option groups belonging to a category.
func (r *MockOptionGroupRepository) GetByCategory(categoryID string) ([]models.OptionGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groupList := make([]models.OptionGroup, 0)
	for _, g := range r.groups {
		if g.CategoryID == categoryID {
			groupList = append(groupList, g)
		}
	}
	sort.Slice(groupList, func(i, j int) bool {
		return groupList[i].Name < groupList[j].Name
	})
	return groupList, nil
}

// GetByID returns an option group by its ID.
func (r *MockOptionGroupRepository) GetByID(id string) (*models.OptionGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("option group with ID %s not found", id)
	}
	return &group, nil
}

// Create adds a new option group.
func (r *MockOptionGroupRepository) Create(group *models.OptionGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	for i := range group.Options {
		if group.Options[i].ID == "" {
			group.Options[i].ID = uuid.New().String()
		}
		group.Options[i].GroupID = group.ID
	}
	r.groups[group.ID] = *group
	return nil
}

// Update modifies an existing option group.
func (r *MockOptionGroupRepository) Update(group *models.OptionGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.groups[group.ID]
	if !ok {
		return fmt.Errorf("option group with ID %s not found for update", group.ID)
	}
	r.groups[group.ID] = *group
	return nil
}

// Delete removes an option group by its ID.
func (r *MockOptionGroupRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("option group with ID %s not found for deletion", id)
	}
	delete(r.groups, id)
	return nil
}

// SetOptionAvailability flips the availability flag on a single option.
func (r *MockOptionGroupRepository) SetOptionAvailability(optionID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for groupID, group := range r.groups {
		for i := range group.Options {
			if group.Options[i].ID == optionID {
				group.Options[i].IsAvailable = available
				r.groups[groupID] = group
				return nil
			}
		}
	}
	return fmt.Errorf("option with ID %s not found for availability update", optionID)
}
