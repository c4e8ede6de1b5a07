package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bakeshop/internal/models"
)

// HTTPOrderSubmitter dispatches order submissions to a remote order service
// over HTTP POST. It implements services.OrderSubmitter.
type HTTPOrderSubmitter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPOrderSubmitter creates a submitter posting to baseURL.
func NewHTTPOrderSubmitter(baseURL string) *HTTPOrderSubmitter {
	return &HTTPOrderSubmitter{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Submit posts the payload to the order collaborator and returns the
// created order ID. A timeout or network failure comes back through the
// same error path as a rejected order.
func (s *HTTPOrderSubmitter) Submit(payload models.OrderPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order payload: %w", err)
	}

	resp, err := s.client.Post(s.baseURL+"/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("order submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Message != "" {
			return "", fmt.Errorf("order rejected: %s", failure.Message)
		}
		return "", fmt.Errorf("order rejected with status %d", resp.StatusCode)
	}

	var created struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	if created.Order.ID != "" {
		return created.Order.ID, nil
	}
	return created.ID, nil
}
