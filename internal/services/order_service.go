package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"bakeshop/internal/models"
	"bakeshop/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher publishes order lifecycle events to the message broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderService handles business logic related to orders. It also serves as
// the local order-submission collaborator when no remote order service is
// configured.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	publisher   EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, publisher EventPublisher) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// GetOrdersByBuyer retrieves all orders placed by one buyer.
func (s *OrderService) GetOrdersByBuyer(buyerID string) ([]models.Order, error) {
	return s.orderRepo.GetByBuyer(buyerID)
}

// PlaceOrder persists a normalized submission payload as a pending order
// and publishes an order.created event. Item prices arrive already computed
// by the cart pricing engine; this service checks the referenced products
// exist and totals the order.
func (s *OrderService) PlaceOrder(payload models.OrderPayload) (*models.Order, error) {
	totalAmount := decimal.Zero
	for _, item := range payload.Items {
		if _, err := s.productRepo.GetByID(item.ProductID); err != nil {
			return nil, fmt.Errorf("product %s not found: %w", item.ProductID, err)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %s has invalid quantity %d", item.ProductID, item.Quantity)
		}
		totalAmount = totalAmount.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	newOrder := &models.Order{
		ID:          uuid.New().String(),
		BuyerID:     payload.BuyerRef,
		Items:       payload.Items,
		TotalAmount: totalAmount,
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.orderRepo.Create(newOrder); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	s.publishOrderCreated(newOrder)
	return newOrder, nil
}

// Submit implements the OrderSubmitter collaborator interface so the
// checkout service can dispatch to this service in-process.
func (s *OrderService) Submit(payload models.OrderPayload) (string, error) {
	order, err := s.PlaceOrder(payload)
	if err != nil {
		return "", err
	}
	return order.ID, nil
}

// UpdateOrderStatus updates the status of an existing order.
func (s *OrderService) UpdateOrderStatus(id string, status string) error {
	validStatuses := map[string]bool{
		models.OrderStatusPending:    true,
		models.OrderStatusProcessing: true,
		models.OrderStatusCompleted:  true,
		models.OrderStatusCancelled:  true,
	}
	if _, ok := validStatuses[status]; !ok {
		return fmt.Errorf("invalid order status: %s", status)
	}

	if err := s.orderRepo.UpdateStatus(id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	return nil
}

// publishOrderCreated emits the order.created event. Publishing is best
// effort: the order is already persisted, so a broker failure is logged and
// the caller still gets a success.
func (s *OrderService) publishOrderCreated(order *models.Order) {
	if s.publisher == nil {
		log.Println("Event publisher is not configured. Skipping order.created event.")
		return
	}

	event := map[string]interface{}{
		"orderID": order.ID,
		"buyerID": order.BuyerID,
		"status":  order.Status,
		"total":   order.TotalAmount,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal order.created event: %v", err)
		return
	}
	if err := s.publisher.Publish("order", "order.created", body); err != nil {
		log.Printf("Warning: Failed to publish order.created event for order %s: %v", order.ID, err)
		return
	}
	log.Printf("Published order.created event for order %s", order.ID)
}
