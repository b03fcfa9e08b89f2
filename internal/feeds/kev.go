package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KEVEntry is one raw entry from the known-exploited-vulnerabilities
// snapshot list.
type KEVEntry struct {
	CVEID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	VulnerabilityName          string `json:"vulnerabilityName"`
	DateAdded                  string `json:"dateAdded"` // YYYY-MM-DD
	ShortDescription           string `json:"shortDescription"`
	RequiredAction             string `json:"requiredAction"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
	Notes                      string `json:"notes"`
}

type kevCatalog struct {
	Title           string     `json:"title"`
	CatalogVersion  string     `json:"catalogVersion"`
	Count           int        `json:"count"`
	Vulnerabilities []KEVEntry `json:"vulnerabilities"`
}

// KEVClient fetches the exploited-list snapshot. The source has no windowing;
// every fetch returns the full catalog.
type KEVClient struct {
	url    string
	client *http.Client
}

// NewKEVClient builds an exploited-list client with a fixed request timeout.
func NewKEVClient(url string, timeout time.Duration) *KEVClient {
	return &KEVClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchSnapshot returns the full exploited-vulnerabilities catalog.
func (c *KEVClient) FetchSnapshot(ctx context.Context) ([]KEVEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exploited-list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exploited-list returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading exploited-list response: %w", err)
	}

	var catalog kevCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("decoding exploited-list response: %w", err)
	}

	return catalog.Vulnerabilities, nil
}
