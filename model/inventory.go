package model

import "time"

// Tenant is an organizational unit whose device inventory is checked against
// threat items. Exposure and criticality flags come from tenant metadata
// owned outside this service; both default to false.
type Tenant struct {
	Key              string `json:"_key,omitempty"`
	ID               string `json:"id"`
	Name             string `json:"name"`
	InternetExposed  bool   `json:"internet_exposed"`
	BusinessCritical bool   `json:"business_critical"`
	ObjType          string `json:"objtype,omitempty"` // "Tenant"
}

// SoftwareEntry is one piece of software observed on a device by the
// external scanning pipeline.
type SoftwareEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ScanRecord is a read-only view of one device scan produced by the external
// scanning pipeline. This service never writes scan records.
type ScanRecord struct {
	Key       string          `json:"_key,omitempty"`
	TenantID  string          `json:"tenant_id"`
	DeviceID  string          `json:"device_id"`
	ScannedAt time.Time       `json:"scanned_at"`
	Software  []SoftwareEntry `json:"software"`
}
