// Package normalize converts raw feed records into canonical threat items.
// It owns product-name normalization, platform-identifier (CPE) parsing, and
// severity/CVSS extraction.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/threatiq/threatiq-backend/internal/feeds"
	"github.com/threatiq/threatiq-backend/model"
	"github.com/threatiq/threatiq-backend/util"
)

// SourceCVE and SourceKEV identify which feed produced or last touched an item.
const (
	SourceCVE = "nvd"
	SourceKEV = "cisa-kev"
)

// maxDescriptionLen caps the stored long-form description.
const maxDescriptionLen = 1000

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9 ]+`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a product-name string: lowercase, strip everything
// that is not alphanumeric or a space, collapse repeated whitespace, trim.
// Normalizing an already-normalized string is a no-op.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseCPEProduct extracts a normalized "{vendor} {product}" string from a
// CPE 2.3 identifier ("cpe:2.3:a:microsoft:office:16.0:..."). The fields are
// colon-delimited with vendor fourth and product fifth. Malformed or short
// identifiers yield ok=false and are skipped by the caller.
func ParseCPEProduct(criteria string) (string, bool) {
	parts := strings.Split(criteria, ":")
	if len(parts) < 5 {
		return "", false
	}

	vendor := parts[3]
	product := parts[4]
	if vendor == "" || vendor == "*" || vendor == "-" || product == "" || product == "*" || product == "-" {
		return "", false
	}

	// CPE encodes spaces as underscores
	vendor = strings.ReplaceAll(vendor, "_", " ")
	product = strings.ReplaceAll(product, "_", " ")

	name := Normalize(vendor + " " + product)
	if name == "" {
		return "", false
	}
	return name, true
}

// ThreatFromCVE converts one raw CVE database record into a canonical threat
// item. A record with a malformed identifier is rejected; the caller skips it
// and proceeds with the rest of the batch.
func ThreatFromCVE(rec feeds.CVERecord) (*model.ThreatItem, error) {
	id := strings.ToUpper(strings.TrimSpace(rec.CVE.ID))
	if !model.ValidThreatID(id) {
		return nil, fmt.Errorf("malformed disclosure identifier %q", rec.CVE.ID)
	}

	item := model.NewThreatItem(id)
	item.Source = SourceCVE
	item.CVSSScore, item.Severity = selectMetric(rec)
	item.Description = util.Truncate(englishDescription(rec), maxDescriptionLen)

	if published, err := time.Parse("2006-01-02T15:04:05.000", rec.CVE.Published); err == nil {
		item.PublishedDate = published.UTC()
	} else if published, err := time.Parse(time.RFC3339, rec.CVE.Published); err == nil {
		item.PublishedDate = published.UTC()
	}

	seen := map[string]bool{}
	for _, cfg := range rec.CVE.Configurations {
		for _, node := range cfg.Nodes {
			for _, match := range node.CPEMatch {
				name, ok := ParseCPEProduct(match.Criteria)
				if !ok || seen[name] {
					continue
				}
				seen[name] = true
				item.AffectedProducts = append(item.AffectedProducts, name)
			}
		}
	}

	for _, ref := range rec.CVE.References {
		if ref.URL != "" {
			item.References = append(item.References, ref.URL)
		}
	}

	return item, nil
}

// selectMetric picks the newest available scoring standard: v3.1 preferred,
// then v3.0, with v2 as the legacy fallback. For the legacy metric the
// severity is derived by threshold since v2 ratings use a different scale.
func selectMetric(rec feeds.CVERecord) (float64, model.Severity) {
	metrics := rec.CVE.Metrics

	if m, ok := primaryMetric(metrics.CVSSMetricV31); ok {
		score := metricScore(m)
		return score, model.ParseSeverity(m.CVSSData.BaseSeverity, score)
	}
	if m, ok := primaryMetric(metrics.CVSSMetricV30); ok {
		score := metricScore(m)
		return score, model.ParseSeverity(m.CVSSData.BaseSeverity, score)
	}
	if m, ok := primaryMetric(metrics.CVSSMetricV2); ok {
		score := metricScore(m)
		return score, model.SeverityFromScore(score)
	}

	return 0, model.SeverityLow
}

// primaryMetric prefers the entry marked Primary, falling back to the first.
func primaryMetric(entries []feeds.CVSSMetric) (feeds.CVSSMetric, bool) {
	if len(entries) == 0 {
		return feeds.CVSSMetric{}, false
	}
	for _, m := range entries {
		if m.Type == "Primary" {
			return m, true
		}
	}
	return entries[0], true
}

// metricScore returns the metric's base score, recomputing it from the
// vector string when the numeric field is absent.
func metricScore(m feeds.CVSSMetric) float64 {
	if m.CVSSData.BaseScore > 0 {
		return m.CVSSData.BaseScore
	}
	return util.CalculateCVSSScore(m.CVSSData.VectorString)
}

func englishDescription(rec feeds.CVERecord) string {
	for _, d := range rec.CVE.Descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(rec.CVE.Descriptions) > 0 {
		return rec.CVE.Descriptions[0].Value
	}
	return ""
}

// Default values for items synthesized from the exploited-list source, which
// carries no scoring information of its own.
const (
	kevDefaultCVSS = 7.5
)

// ApplyKEV folds one exploited-list entry into the store's view of the item.
// When the item already exists only the exploitation fields are set; an
// unknown identifier synthesizes a new item with default severity and score.
func ApplyKEV(existing *model.ThreatItem, entry feeds.KEVEntry) (*model.ThreatItem, error) {
	id := strings.ToUpper(strings.TrimSpace(entry.CVEID))
	if !model.ValidThreatID(id) {
		return nil, fmt.Errorf("malformed disclosure identifier %q", entry.CVEID)
	}

	var exploitationDate *time.Time
	if added, err := time.Parse("2006-01-02", entry.DateAdded); err == nil {
		utc := added.UTC()
		exploitationDate = &utc
	}

	details := &model.ExploitationDetails{
		Campaign:         entry.VulnerabilityName,
		Indicators:       entry.Notes,
		ExploitAvailable: strings.EqualFold(entry.KnownRansomwareCampaignUse, "known"),
		RequiredAction:   entry.RequiredAction,
	}

	if existing != nil {
		// Update in place: the exploited-list source only upgrades the
		// exploitation state, it never overrides CVE-database scoring.
		existing.Exploited = true
		existing.ExploitationDate = exploitationDate
		existing.Exploitation = details
		existing.Source = SourceKEV
		existing.UpdatedAt = time.Now().UTC()
		return existing, nil
	}

	item := model.NewThreatItem(id)
	item.Source = SourceKEV
	item.Severity = model.SeverityHigh
	item.CVSSScore = kevDefaultCVSS
	item.Exploited = true
	item.ExploitationDate = exploitationDate
	item.Exploitation = details
	item.Description = util.Truncate(entry.ShortDescription, maxDescriptionLen)
	if exploitationDate != nil {
		item.PublishedDate = *exploitationDate
	}

	if name := Normalize(entry.VendorProject + " " + entry.Product); name != "" {
		item.AffectedProducts = append(item.AffectedProducts, name)
	}

	return item, nil
}
