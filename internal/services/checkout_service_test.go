package services_test

import (
	"fmt"
	"testing"
	"time"

	"bakeshop/internal/models"
	"bakeshop/internal/services"
	"bakeshop/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOrderSubmitter is a mock implementation of services.OrderSubmitter.
type MockOrderSubmitter struct {
	mock.Mock
}

func (m *MockOrderSubmitter) Submit(payload models.OrderPayload) (string, error) {
	args := m.Called(payload)
	return args.String(0), args.Error(1)
}

func checkoutSession(t *testing.T) *services.CartSession {
	t.Helper()
	manager := services.NewSessionManager(storage.NewMemoryStore())
	session := manager.Session("buyer-1")

	cake := models.Product{ID: "p-cake", Name: "Torta Personalizada", UnitPrice: dec("20.00"), CategoryLabel: "Tortas Personalizadas", Customizable: true}
	session.Cart.Add(cake, 1)
	session.Cart.Add(testProduct("p-cupcake", "Cupcake", "2.50"), 4)
	session.OpenConfigurator(cakeGroups(), cake.ID)
	return session
}

func TestCheckoutService_PrepareRejectsUnmetGroups(t *testing.T) {
	mockSubmitter := new(MockOrderSubmitter)
	checkout := services.NewCheckoutService(mockSubmitter)
	session := checkoutSession(t)

	// "Relleno" requires one selection and has none.
	payload, unmet, err := checkout.Prepare(session)
	assert.NoError(t, err)
	assert.Nil(t, payload)
	assert.Len(t, unmet, 1)
	assert.Equal(t, "Relleno", unmet[0].GroupName)
	assert.Equal(t, services.DraftRejected, session.State())

	// The submission collaborator must never be contacted.
	mockSubmitter.AssertNotCalled(t, "Submit", mock.Anything)
}

func TestCheckoutService_PrepareBuildsPayload(t *testing.T) {
	checkout := services.NewCheckoutService(new(MockOrderSubmitter))
	session := checkoutSession(t)
	session.Engine.Toggle(session.Groups(), "g-relleno", "o-manjar")
	session.Engine.Toggle(session.Groups(), "g-pisos", "o-piso-extra")

	payload, unmet, err := checkout.Prepare(session)
	assert.NoError(t, err)
	assert.Empty(t, unmet)
	assert.Equal(t, "buyer-1", payload.BuyerRef)
	assert.Len(t, payload.Items, 2)

	var configured, plain models.OrderItem
	for _, item := range payload.Items {
		if item.ProductID == "p-cake" {
			configured = item
		} else {
			plain = item
		}
	}

	assert.Equal(t, 1, configured.Quantity)
	assert.True(t, configured.Price.Equal(dec("28.50")))
	assert.Len(t, configured.Customizations, 2)
	assert.Equal(t, "Manjar", configured.Customizations[0].Name)
	assert.True(t, configured.Customizations[0].Price.Equal(dec("3.50")))
	assert.Equal(t, "Piso Extra", configured.Customizations[1].Name)

	assert.Equal(t, 4, plain.Quantity)
	assert.True(t, plain.Price.Equal(dec("2.50")))
	assert.Empty(t, plain.Customizations)
}

func TestCheckoutService_PrepareEmptyCart(t *testing.T) {
	checkout := services.NewCheckoutService(new(MockOrderSubmitter))
	manager := services.NewSessionManager(storage.NewMemoryStore())
	session := manager.Session("buyer-2")

	payload, unmet, err := checkout.Prepare(session)
	assert.Error(t, err)
	assert.Nil(t, payload)
	assert.Empty(t, unmet)
}

func TestCheckoutService_SubmitSuccessClearsState(t *testing.T) {
	mockSubmitter := new(MockOrderSubmitter)
	checkout := services.NewCheckoutService(mockSubmitter)
	session := checkoutSession(t)
	session.Engine.Toggle(session.Groups(), "g-relleno", "o-crema")

	payload, _, err := checkout.Prepare(session)
	assert.NoError(t, err)

	mockSubmitter.On("Submit", *payload).Return("order-42", nil).Once()

	result := checkout.Submit(session, *payload)
	assert.True(t, result.Submitted)
	assert.Equal(t, "order-42", result.OrderID)
	assert.Equal(t, services.DraftSubmitted, session.State())

	assert.Equal(t, 0, session.Cart.TotalItems())
	assert.Empty(t, session.Engine.Selections())
	assert.False(t, checkout.IsSubmitting("buyer-1"))
	mockSubmitter.AssertExpectations(t)
}

func TestCheckoutService_SubmitFailurePreservesState(t *testing.T) {
	mockSubmitter := new(MockOrderSubmitter)
	checkout := services.NewCheckoutService(mockSubmitter)
	session := checkoutSession(t)
	session.Engine.Toggle(session.Groups(), "g-relleno", "o-crema")

	payload, _, err := checkout.Prepare(session)
	assert.NoError(t, err)

	mockSubmitter.On("Submit", *payload).Return("", fmt.Errorf("order service unavailable")).Once()

	itemsBefore := session.Cart.TotalItems()
	selectionsBefore := session.Engine.Selections()

	result := checkout.Submit(session, *payload)
	assert.False(t, result.Submitted)
	assert.Contains(t, result.Reason, "unavailable")
	assert.Equal(t, services.DraftFailed, session.State())

	// No partial clearing: cart and selections survive for a retry.
	assert.Equal(t, itemsBefore, session.Cart.TotalItems())
	assert.Equal(t, selectionsBefore, session.Engine.Selections())
	assert.False(t, checkout.IsSubmitting("buyer-1"))
	mockSubmitter.AssertExpectations(t)
}

func TestCheckoutService_SingleInFlightSubmission(t *testing.T) {
	mockSubmitter := new(MockOrderSubmitter)
	checkout := services.NewCheckoutService(mockSubmitter)
	session := checkoutSession(t)
	session.Engine.Toggle(session.Groups(), "g-relleno", "o-crema")

	payload, _, err := checkout.Prepare(session)
	assert.NoError(t, err)

	release := make(chan struct{})
	mockSubmitter.On("Submit", *payload).Run(func(mock.Arguments) {
		<-release
	}).Return("order-42", nil).Once()

	done := make(chan services.SubmissionResult, 1)
	go func() {
		done <- checkout.Submit(session, *payload)
	}()

	// Wait for the first attempt to be in flight.
	deadline := time.Now().Add(2 * time.Second)
	for !checkout.IsSubmitting("buyer-1") {
		if time.Now().After(deadline) {
			t.Fatal("first submission never became in-flight")
		}
		time.Sleep(time.Millisecond)
	}

	second := checkout.Submit(session, *payload)
	assert.False(t, second.Submitted)
	assert.Contains(t, second.Reason, "already in progress")

	close(release)
	first := <-done
	assert.True(t, first.Submitted)
	mockSubmitter.AssertExpectations(t)
}
