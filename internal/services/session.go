package services

import (
	"fmt"
	"sync"

	"bakeshop/internal/models"
	"bakeshop/internal/storage"
)

// DraftState is the submission lifecycle of a cart session. Editing is the
// initial state; Submitted is terminal, Failed and Rejected drop back to
// Editing once the buyer resumes.
type DraftState string

const (
	DraftEditing    DraftState = "editing"
	DraftValidating DraftState = "validating"
	DraftRejected   DraftState = "rejected"
	DraftSubmitting DraftState = "submitting"
	DraftSubmitted  DraftState = "submitted"
	DraftFailed     DraftState = "failed"
)

// CartSession bundles one buyer's cart, configurator selections and the
// loaded option-group definitions. A session owns its state exclusively;
// nothing is shared across buyers.
type CartSession struct {
	BuyerRef string
	Cart     *CartStore
	Engine   *SelectionEngine

	groups              []models.OptionGroup
	configuredProductID string
	state               DraftState
	mu                  sync.RWMutex
}

// OpenConfigurator installs the option-group definitions for the session's
// configurable product. Selections made against a previous catalog load are
// kept; Validate and ExtrasTotal always resolve against the latest
// definitions.
func (s *CartSession) OpenConfigurator(groups []models.OptionGroup, configuredProductID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = groups
	s.configuredProductID = configuredProductID
}

// Groups returns the currently loaded option-group definitions.
func (s *CartSession) Groups() []models.OptionGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups
}

// ConfiguredProductID returns the product the configurator session prices.
func (s *CartSession) ConfiguredProductID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configuredProductID
}

// State returns the session's submission state.
func (s *CartSession) State() DraftState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *CartSession) setState(state DraftState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// SessionManager hands out one CartSession per buyer, restoring the
// persisted cart snapshot the first time a buyer shows up.
type SessionManager struct {
	kv       storage.KeyValueStore
	sessions map[string]*CartSession
	mu       sync.Mutex
}

// NewSessionManager creates a new SessionManager backed by the given store.
func NewSessionManager(kv storage.KeyValueStore) *SessionManager {
	return &SessionManager{
		kv:       kv,
		sessions: make(map[string]*CartSession),
	}
}

// Session returns the buyer's session, creating and restoring it on first
// access.
func (m *SessionManager) Session(buyerRef string) *CartSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[buyerRef]; ok {
		return session
	}

	cart := NewCartStore(cartKey(buyerRef), m.kv)
	cart.RestoreFromStore()

	session := &CartSession{
		BuyerRef: buyerRef,
		Cart:     cart,
		Engine:   NewSelectionEngine(),
		state:    DraftEditing,
	}
	m.sessions[buyerRef] = session
	return session
}

// Drop forgets a buyer's in-memory session. The persisted snapshot stays
// untouched, so the next access restores it.
func (m *SessionManager) Drop(buyerRef string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, buyerRef)
}

func cartKey(buyerRef string) string {
	return fmt.Sprintf("cart:%s", buyerRef)
}
