package services

import (
	"fmt"
	"sync"

	"bakeshop/internal/models"

	"github.com/go-playground/validator/v10"
)

// OrderSubmitter is the external order-placement collaborator. It either
// returns the created order's ID or fails; the checkout service only reacts
// to pass/fail and leaves retries to the buyer.
type OrderSubmitter interface {
	Submit(payload models.OrderPayload) (string, error)
}

// SubmissionResult is the outcome of one submission attempt.
type SubmissionResult struct {
	Submitted bool   `json:"submitted"`
	OrderID   string `json:"orderId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// CheckoutService assembles a validated order submission from a cart
// session and reconciles the session with the submission outcome: success
// clears cart and selections, failure preserves everything for a retry.
type CheckoutService struct {
	submitter OrderSubmitter
	validate  *validator.Validate

	inFlight map[string]bool
	mu       sync.Mutex
}

// NewCheckoutService creates a new CheckoutService dispatching to the given
// submitter.
func NewCheckoutService(submitter OrderSubmitter) *CheckoutService {
	return &CheckoutService{
		submitter: submitter,
		validate:  validator.New(),
		inFlight:  make(map[string]bool),
	}
}

// Prepare validates the session's mandatory option groups and, if they are
// all satisfied, builds the normalized order payload. A non-empty unmet
// list means validation failed and the submitter must not be contacted;
// the session stays fully editable either way.
func (s *CheckoutService) Prepare(session *CartSession) (*models.OrderPayload, []UnmetRequirement, error) {
	session.setState(DraftValidating)

	groups := session.Groups()
	if unmet := session.Engine.Validate(groups); len(unmet) > 0 {
		session.setState(DraftRejected)
		return nil, unmet, nil
	}

	lines := session.Cart.Lines()
	if len(lines) == 0 {
		session.setState(DraftEditing)
		return nil, nil, fmt.Errorf("cart is empty")
	}

	configuredID := session.ConfiguredProductID()
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     LineUnitPrice(line, configuredID, session.Engine, groups),
		}
		if line.ProductID == configuredID {
			for _, option := range session.Engine.SelectedOptions(groups) {
				item.Customizations = append(item.Customizations, models.Customization{
					Name:  option.Name,
					Price: option.PriceExtra,
				})
			}
		}
		items = append(items, item)
	}

	payload := &models.OrderPayload{
		BuyerRef: session.BuyerRef,
		Items:    items,
	}
	if err := s.validate.Struct(payload); err != nil {
		session.setState(DraftEditing)
		return nil, nil, fmt.Errorf("order payload failed validation: %w", err)
	}
	return payload, nil, nil
}

// Submit dispatches a prepared payload to the order collaborator. Only one
// attempt may be in flight per buyer; a second attempt is turned away
// without touching the pending one. On success the cart and selections are
// cleared; on failure both are preserved unchanged and the reason is
// returned for display.
func (s *CheckoutService) Submit(session *CartSession, payload models.OrderPayload) SubmissionResult {
	s.mu.Lock()
	if s.inFlight[session.BuyerRef] {
		s.mu.Unlock()
		return SubmissionResult{Reason: "a submission is already in progress"}
	}
	s.inFlight[session.BuyerRef] = true
	s.mu.Unlock()

	session.setState(DraftSubmitting)
	orderID, err := s.submitter.Submit(payload)

	s.mu.Lock()
	delete(s.inFlight, session.BuyerRef)
	s.mu.Unlock()

	if err != nil {
		session.setState(DraftFailed)
		return SubmissionResult{Reason: err.Error()}
	}

	session.Cart.Clear()
	session.Engine.Reset()
	session.setState(DraftSubmitted)
	return SubmissionResult{Submitted: true, OrderID: orderID}
}

// IsSubmitting reports whether a submission attempt is currently in flight
// for the buyer.
func (s *CheckoutService) IsSubmitting(buyerRef string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[buyerRef]
}
