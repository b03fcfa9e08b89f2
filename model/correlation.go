package model

import "time"

// ImpactedSoftware records one locally observed software entry that matched a
// threat's affected products, and the devices it was observed on.
type ImpactedSoftware struct {
	Name         string   `json:"name"`    // normalized observed software name
	Version      string   `json:"version"` // observed version string, as reported by the scanner
	VersionMajor *int     `json:"version_major,omitempty"`
	VersionMinor *int     `json:"version_minor,omitempty"`
	VersionPatch *int     `json:"version_patch,omitempty"`
	Endpoints    []string `json:"endpoints"`
}

// RiskFactors retains the inputs that produced a correlation's risk score.
type RiskFactors struct {
	CVSSScore           float64 `json:"cvss_score"`
	ExploitedMultiplier float64 `json:"exploited_multiplier"`
	EndpointCount       int     `json:"endpoint_count"`
	InternetExposure    bool    `json:"internet_exposure"`
	CriticalSystem      bool    `json:"critical_system"`
}

// ThreatSnapshot is a denormalized view of the threat item at the time the
// correlation was computed, so dashboard consumers avoid a second lookup.
type ThreatSnapshot struct {
	Severity         Severity `json:"severity"`
	Exploited        bool     `json:"exploited"`
	ExploitAvailable bool     `json:"exploit_available"`
}

// Correlation is the computed impact of one threat item on one tenant.
// At most one record exists per (threat_id, tenant_id); every correlation run
// recomputes the record wholesale.
type Correlation struct {
	Key                   string             `json:"_key,omitempty"`
	ThreatID              string             `json:"threat_id"`
	TenantID              string             `json:"tenant_id"`
	ImpactedEndpoints     []string           `json:"impacted_endpoints"`
	ImpactedSoftware      []ImpactedSoftware `json:"impacted_software"`
	RiskScore             int                `json:"risk_score"` // [0,100]
	RiskFactors           RiskFactors        `json:"risk_factors"`
	ThreatDetails         ThreatSnapshot     `json:"threat_details"`
	ActionRecommendations []string           `json:"action_recommendations"`
	LastChecked           time.Time          `json:"last_checked"`
	ObjType               string             `json:"objtype"` // "Correlation"
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// NewCorrelation creates a correlation for a (threat, tenant) pair with
// defaults and timestamps set.
func NewCorrelation(threatID, tenantID string) *Correlation {
	now := time.Now().UTC()
	return &Correlation{
		ThreatID:              threatID,
		TenantID:              tenantID,
		ImpactedEndpoints:     []string{},
		ImpactedSoftware:      []ImpactedSoftware{},
		ActionRecommendations: []string{},
		ObjType:               "Correlation",
		LastChecked:           now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
