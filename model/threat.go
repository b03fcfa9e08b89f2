// Package model defines the data structures used by threatiq-backend,
// including threat items, correlations, and the tenant inventory read-model.
package model

import (
	"regexp"
	"strings"
	"time"
)

// Severity classifies a threat item.
type Severity string

const (
	// SeverityCritical is assigned to threats with CVSS >= 9.0.
	SeverityCritical Severity = "critical"
	// SeverityHigh is assigned to threats with CVSS >= 7.0.
	SeverityHigh Severity = "high"
	// SeverityMedium is assigned to threats with CVSS >= 4.0.
	SeverityMedium Severity = "medium"
	// SeverityLow is assigned to everything below 4.0.
	SeverityLow Severity = "low"
)

// SeverityFromScore derives a severity rating from a CVSS base score.
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ParseSeverity maps a feed-provided rating string onto the Severity enum.
// Unknown ratings fall back to deriving from the score.
func ParseSeverity(rating string, score float64) Severity {
	switch strings.ToLower(strings.TrimSpace(rating)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityFromScore(score)
	}
}

var threatIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// ValidThreatID reports whether id is a well-formed, uppercase disclosure identifier.
func ValidThreatID(id string) bool {
	return threatIDPattern.MatchString(id)
}

// ExploitationDetails carries extra context from the exploited-list source.
type ExploitationDetails struct {
	Campaign         string `json:"campaign,omitempty"`          // e.g., vulnerability name from the catalog entry
	Indicators       string `json:"indicators,omitempty"`        // free-form notes from the source
	ExploitAvailable bool   `json:"exploit_available"`           // true when the source flags known exploitation tooling
	RequiredAction   string `json:"required_action,omitempty"`   // remediation directive from the source
}

// ThreatItem is the canonical form of one vulnerability disclosure.
// Exactly one item exists per disclosure identifier; repeated ingestion
// upserts fields in place.
type ThreatItem struct {
	Key              string               `json:"_key,omitempty"`   // Database key, derived from ID
	ID               string               `json:"id"`               // e.g., "CVE-2024-1234", uppercase
	Severity         Severity             `json:"severity"`         // critical/high/medium/low
	CVSSScore        float64              `json:"cvss_score"`       // [0,10]
	Exploited        bool                 `json:"exploited"`        // true once any source reports active exploitation
	AffectedProducts []string             `json:"affected_products"`// normalized "{vendor} {product}" strings
	Description      string               `json:"description"`      // capped at 1000 characters
	PublishedDate    time.Time            `json:"published_date"`
	Source           string               `json:"source"`           // feed that produced or last touched the item
	References       []string             `json:"references"`
	ExploitationDate *time.Time           `json:"exploitation_date,omitempty"`
	Exploitation     *ExploitationDetails `json:"exploitation_details,omitempty"`
	ObjType          string               `json:"objtype"`          // "ThreatItem"
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// NewThreatItem creates a threat item with defaults and timestamps set.
func NewThreatItem(id string) *ThreatItem {
	now := time.Now().UTC()
	return &ThreatItem{
		ID:               strings.ToUpper(strings.TrimSpace(id)),
		ObjType:          "ThreatItem",
		AffectedProducts: []string{},
		References:       []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
