package clients

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bakeshop/internal/models"
)

// HTTPGroupCatalog loads option-group definitions from a remote catalog
// service over HTTP GET. It implements services.GroupCatalog.
type HTTPGroupCatalog struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGroupCatalog creates a catalog client reading from baseURL.
func NewHTTPGroupCatalog(baseURL string) *HTTPGroupCatalog {
	return &HTTPGroupCatalog{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GroupsForCategory fetches the option groups keyed by a category ID.
func (c *HTTPGroupCatalog) GroupsForCategory(categoryID string) ([]models.OptionGroup, error) {
	url := fmt.Sprintf("%s/categories/%s/groups", c.baseURL, categoryID)
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to load option groups: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog responded with status %d for category %s", resp.StatusCode, categoryID)
	}

	var groups []models.OptionGroup
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		return nil, fmt.Errorf("failed to decode option groups: %w", err)
	}
	return groups, nil
}
