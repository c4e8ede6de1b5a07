package services

import (
	"fmt"
	"sort"
	"sync"

	"bakeshop/internal/models"

	"github.com/shopspring/decimal"
)

// ToggleStatus describes what a configurator toggle did.
type ToggleStatus string

const (
	ToggleSelected   ToggleStatus = "selected"
	ToggleReplaced   ToggleStatus = "replaced"
	ToggleDeselected ToggleStatus = "deselected"
	ToggleRejected   ToggleStatus = "rejected"
)

// ToggleOutcome is the result value of a toggle command. A rejection names
// its reason and guarantees the selection state did not change.
type ToggleOutcome struct {
	Status ToggleStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// UnmetRequirement names an option group whose minimum selection count is
// not satisfied by the current state.
type UnmetRequirement struct {
	GroupID      string `json:"groupId"`
	GroupName    string `json:"groupName"`
	MinSelection int    `json:"minSelection"`
	Selected     int    `json:"selected"`
}

// SelectionEngine tracks per-group option choices for the configurable
// product and enforces the selection-count rules: a group with
// MaxSelection 1 behaves as an exclusive choice where a new selection
// always replaces the previous one, any larger cap behaves as bounded
// multi-choice.
type SelectionEngine struct {
	selected map[string]map[string]struct{}
	mu       sync.RWMutex
}

// NewSelectionEngine creates an engine with no selections.
func NewSelectionEngine() *SelectionEngine {
	return &SelectionEngine{
		selected: make(map[string]map[string]struct{}),
	}
}

// Toggle applies one selection event against the given group definitions.
// Unknown groups, unknown options, unavailable options and full multi-choice
// groups are all rejected the same way: with an outcome, untouched state.
func (e *SelectionEngine) Toggle(groups []models.OptionGroup, groupID, optionID string) ToggleOutcome {
	group := findGroup(groups, groupID)
	if group == nil {
		// Stale UI state can reference groups the catalog no longer serves.
		return ToggleOutcome{Status: ToggleRejected, Reason: fmt.Sprintf("option group %s is not part of the current catalog", groupID)}
	}

	option := findOption(group, optionID)
	if option == nil {
		return ToggleOutcome{Status: ToggleRejected, Reason: fmt.Sprintf("option %s does not belong to group %s", optionID, group.Name)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.selected[groupID]
	_, alreadySelected := current[optionID]

	// Deselecting is always allowed, available or not, so a buyer can back
	// out of an option that went unavailable mid-session.
	if group.MaxSelection > 1 && alreadySelected {
		delete(current, optionID)
		return ToggleOutcome{Status: ToggleDeselected}
	}

	if !option.IsAvailable {
		return ToggleOutcome{Status: ToggleRejected, Reason: fmt.Sprintf("option %s is currently unavailable", option.Name)}
	}

	if group.MaxSelection == 1 {
		// Exclusive choice: pure set, never toggle-off.
		e.selected[groupID] = map[string]struct{}{optionID: {}}
		if alreadySelected {
			return ToggleOutcome{Status: ToggleSelected}
		}
		if len(current) > 0 {
			return ToggleOutcome{Status: ToggleReplaced}
		}
		return ToggleOutcome{Status: ToggleSelected}
	}

	if len(current) >= group.MaxSelection {
		return ToggleOutcome{Status: ToggleRejected, Reason: fmt.Sprintf("group %s allows at most %d selections", group.Name, group.MaxSelection)}
	}

	if current == nil {
		current = make(map[string]struct{})
		e.selected[groupID] = current
	}
	current[optionID] = struct{}{}
	return ToggleOutcome{Status: ToggleSelected}
}

// SelectionsFor returns a copy of the selected option IDs for a group,
// sorted for stable output.
func (e *SelectionEngine) SelectionsFor(groupID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.selected[groupID]))
	for id := range e.selected[groupID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Selections returns a copy of the whole selection state keyed by group ID.
func (e *SelectionEngine) Selections() map[string][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string][]string, len(e.selected))
	for groupID, set := range e.selected {
		if len(set) == 0 {
			continue
		}
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[groupID] = ids
	}
	return out
}

// Validate recomputes, from current state and the given definitions, the
// list of groups whose minimum selection count is unmet. An empty list
// means every mandatory group is satisfied.
func (e *SelectionEngine) Validate(groups []models.OptionGroup) []UnmetRequirement {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var unmet []UnmetRequirement
	for _, group := range groups {
		selectedCount := len(e.selected[group.ID])
		if selectedCount < group.MinSelection {
			unmet = append(unmet, UnmetRequirement{
				GroupID:      group.ID,
				GroupName:    group.Name,
				MinSelection: group.MinSelection,
				Selected:     selectedCount,
			})
		}
	}
	return unmet
}

// ExtrasTotal sums the price extras of every selected option across all
// given groups.
func (e *SelectionEngine) ExtrasTotal(groups []models.OptionGroup) decimal.Decimal {
	total := decimal.Zero
	for _, option := range e.SelectedOptions(groups) {
		total = total.Add(option.PriceExtra)
	}
	return total
}

// SelectedOptions resolves the current selection against the given group
// definitions, in group order then option order. Selections referencing
// groups or options absent from the definitions are skipped.
func (e *SelectionEngine) SelectedOptions(groups []models.OptionGroup) []models.Option {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var options []models.Option
	for _, group := range groups {
		set := e.selected[group.ID]
		if len(set) == 0 {
			continue
		}
		for _, option := range group.Options {
			if _, ok := set[option.ID]; ok {
				options = append(options, option)
			}
		}
	}
	return options
}

// Reset discards all selections.
func (e *SelectionEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = make(map[string]map[string]struct{})
}

func findGroup(groups []models.OptionGroup, groupID string) *models.OptionGroup {
	for i := range groups {
		if groups[i].ID == groupID {
			return &groups[i]
		}
	}
	return nil
}

func findOption(group *models.OptionGroup, optionID string) *models.Option {
	for i := range group.Options {
		if group.Options[i].ID == optionID {
			return &group.Options[i]
		}
	}
	return nil
}
