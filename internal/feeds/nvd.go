// Package feeds implements the stateless clients for the external
// vulnerability disclosure sources. Clients apply a fixed request timeout and
// never retry; a failed fetch surfaces as an error to the caller.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const userAgent = "threatiq-backend/1.0 (+https://github.com/threatiq/threatiq-backend)"

// nvdDateFormat is the timestamp layout the CVE API requires for the
// pubStartDate/pubEndDate window parameters.
const nvdDateFormat = "2006-01-02T15:04:05.000"

// CVERecord is one raw vulnerability entry from the CVE database source.
type CVERecord struct {
	CVE struct {
		ID           string `json:"id"`
		Published    string `json:"published"`
		LastModified string `json:"lastModified"`
		Descriptions []struct {
			Lang  string `json:"lang"`
			Value string `json:"value"`
		} `json:"descriptions"`
		Metrics struct {
			CVSSMetricV31 []CVSSMetric `json:"cvssMetricV31"`
			CVSSMetricV30 []CVSSMetric `json:"cvssMetricV30"`
			CVSSMetricV2  []CVSSMetric `json:"cvssMetricV2"`
		} `json:"metrics"`
		Configurations []struct {
			Nodes []struct {
				CPEMatch []struct {
					Vulnerable bool   `json:"vulnerable"`
					Criteria   string `json:"criteria"`
				} `json:"cpeMatch"`
			} `json:"nodes"`
		} `json:"configurations"`
		References []struct {
			URL string `json:"url"`
		} `json:"references"`
	} `json:"cve"`
}

// CVSSMetric is one scoring entry inside a CVE record.
type CVSSMetric struct {
	Source   string `json:"source"`
	Type     string `json:"type"` // "Primary" or "Secondary"
	CVSSData struct {
		VectorString string  `json:"vectorString"`
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
	BaseSeverity string `json:"baseSeverity"` // v2 carries severity at this level
}

type nvdResponse struct {
	ResultsPerPage  int         `json:"resultsPerPage"`
	StartIndex      int         `json:"startIndex"`
	TotalResults    int         `json:"totalResults"`
	Vulnerabilities []CVERecord `json:"vulnerabilities"`
}

// CVEClient fetches recent disclosures from the CVE database source.
type CVEClient struct {
	baseURL  string
	apiKey   string
	pageSize int
	client   *http.Client
}

// NewCVEClient builds a CVE database client with a fixed request timeout.
func NewCVEClient(baseURL, apiKey string, pageSize int, timeout time.Duration) *CVEClient {
	if pageSize <= 0 || pageSize > 2000 {
		pageSize = 2000
	}
	return &CVEClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}
}

// FetchRecent returns all disclosures published within the last windowDays,
// following result pagination up to the source's page size bound.
func (c *CVEClient) FetchRecent(ctx context.Context, windowDays int) ([]CVERecord, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -windowDays)

	var records []CVERecord
	startIndex := 0

	for {
		page, err := c.fetchPage(ctx, start, end, startIndex)
		if err != nil {
			return nil, err
		}

		records = append(records, page.Vulnerabilities...)

		startIndex += len(page.Vulnerabilities)
		if startIndex >= page.TotalResults || len(page.Vulnerabilities) == 0 {
			break
		}
	}

	return records, nil
}

func (c *CVEClient) fetchPage(ctx context.Context, start, end time.Time, startIndex int) (*nvdResponse, error) {
	params := url.Values{}
	params.Set("pubStartDate", start.Format(nvdDateFormat))
	params.Set("pubEndDate", end.Format(nvdDateFormat))
	params.Set("resultsPerPage", strconv.Itoa(c.pageSize))
	params.Set("startIndex", strconv.Itoa(startIndex))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cve feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cve feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cve feed response: %w", err)
	}

	var page nvdResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding cve feed response: %w", err)
	}

	return &page, nil
}
