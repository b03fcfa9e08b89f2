package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatiq/threatiq-backend/internal/feeds"
	"github.com/threatiq/threatiq-backend/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Google Chrome", "google chrome"},
		{"  Microsoft   Office!  ", "microsoft office"},
		{"OpenSSL (1.1.1)", "openssl 111"},
		{"node.js", "nodejs"},
		{"", ""},
		{"***", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"Google Chrome", "  Apache HTTP Server 2.4!  ", "internet_explorer"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestParseCPEProduct(t *testing.T) {
	tests := []struct {
		criteria string
		want     string
		ok       bool
	}{
		{"cpe:2.3:a:microsoft:office:16.0:*:*:*:*:*:*:*", "microsoft office", true},
		{"cpe:2.3:a:google:chrome:*:*:*:*:*:*:*:*", "google chrome", true},
		{"cpe:2.3:o:microsoft:windows_server_2019:-:*:*:*:*:*:*:*", "microsoft windows server 2019", true},
		{"cpe:2.3:a:*:office:16.0:*:*:*:*:*:*:*", "", false},
		{"cpe:2.3:a:microsoft:-:16.0:*:*:*:*:*:*:*", "", false},
		{"cpe:2.3:a", "", false},
		{"garbage", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCPEProduct(tt.criteria)
		assert.Equal(t, tt.ok, ok, "criteria %q", tt.criteria)
		assert.Equal(t, tt.want, got, "criteria %q", tt.criteria)
	}
}

const sampleCVE = `{
  "cve": {
    "id": "cve-2024-1234",
    "published": "2024-03-15T10:30:00.000",
    "descriptions": [
      {"lang": "es", "value": "descripcion"},
      {"lang": "en", "value": "Use after free in Blink allows a remote attacker to execute arbitrary code."}
    ],
    "metrics": {
      "cvssMetricV31": [
        {"source": "secondary@example.org", "type": "Secondary", "cvssData": {"baseScore": 8.1, "baseSeverity": "HIGH"}},
        {"source": "nvd@nist.gov", "type": "Primary", "cvssData": {"baseScore": 9.8, "baseSeverity": "CRITICAL"}}
      ]
    },
    "configurations": [
      {"nodes": [{"cpeMatch": [
        {"vulnerable": true, "criteria": "cpe:2.3:a:google:chrome:*:*:*:*:*:*:*:*"},
        {"vulnerable": true, "criteria": "cpe:2.3:a:google:chrome:117.0:*:*:*:*:*:*:*"},
        {"vulnerable": true, "criteria": "cpe:2.3:a:microsoft:edge:*:*:*:*:*:*:*:*"}
      ]}]}
    ],
    "references": [{"url": "https://example.org/advisory"}]
  }
}`

func decodeCVE(t *testing.T, raw string) feeds.CVERecord {
	t.Helper()
	var rec feeds.CVERecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestThreatFromCVE(t *testing.T) {
	item, err := ThreatFromCVE(decodeCVE(t, sampleCVE))
	require.NoError(t, err)

	assert.Equal(t, "CVE-2024-1234", item.ID)
	assert.Equal(t, SourceCVE, item.Source)
	assert.Equal(t, 9.8, item.CVSSScore)
	assert.Equal(t, model.SeverityCritical, item.Severity)
	assert.Contains(t, item.Description, "Use after free in Blink")
	assert.Equal(t, "2024-03-15T10:30:00Z", item.PublishedDate.Format("2006-01-02T15:04:05Z07:00"))

	// Duplicate CPE products collapse to one entry.
	assert.Equal(t, []string{"google chrome", "microsoft edge"}, item.AffectedProducts)
	assert.Equal(t, []string{"https://example.org/advisory"}, item.References)
}

func TestThreatFromCVEPrefersPrimaryMetric(t *testing.T) {
	item, err := ThreatFromCVE(decodeCVE(t, sampleCVE))
	require.NoError(t, err)
	assert.Equal(t, 9.8, item.CVSSScore)
}

func TestThreatFromCVERejectsMalformedID(t *testing.T) {
	var rec feeds.CVERecord
	rec.CVE.ID = "GHSA-xxxx-yyyy"
	_, err := ThreatFromCVE(rec)
	assert.Error(t, err)
}

func TestThreatFromCVETruncatesDescription(t *testing.T) {
	var rec feeds.CVERecord
	rec.CVE.ID = "CVE-2024-5678"
	require.NoError(t, json.Unmarshal(
		[]byte(`[{"lang":"en","value":"`+strings.Repeat("a", 5000)+`"}]`),
		&rec.CVE.Descriptions))

	item, err := ThreatFromCVE(rec)
	require.NoError(t, err)
	assert.Len(t, item.Description, 1000)
}

func TestApplyKEVToExistingItem(t *testing.T) {
	existing := model.NewThreatItem("CVE-2024-1234")
	existing.Severity = model.SeverityCritical
	existing.CVSSScore = 9.8
	existing.AffectedProducts = []string{"google chrome"}

	entry := feeds.KEVEntry{
		CVEID:                      "CVE-2024-1234",
		VendorProject:              "Google",
		Product:                    "Chrome",
		VulnerabilityName:          "Google Chrome Use-After-Free Vulnerability",
		DateAdded:                  "2024-03-20",
		RequiredAction:             "Apply updates per vendor instructions.",
		KnownRansomwareCampaignUse: "Known",
	}

	item, err := ApplyKEV(existing, entry)
	require.NoError(t, err)

	assert.True(t, item.Exploited)
	assert.Equal(t, SourceKEV, item.Source)
	require.NotNil(t, item.ExploitationDate)
	assert.Equal(t, "2024-03-20", item.ExploitationDate.Format("2006-01-02"))
	require.NotNil(t, item.Exploitation)
	assert.True(t, item.Exploitation.ExploitAvailable)

	// Scoring from the database record is never overridden.
	assert.Equal(t, 9.8, item.CVSSScore)
	assert.Equal(t, model.SeverityCritical, item.Severity)
	assert.Equal(t, []string{"google chrome"}, item.AffectedProducts)
}

func TestApplyKEVSynthesizesUnknownItem(t *testing.T) {
	entry := feeds.KEVEntry{
		CVEID:            "CVE-2023-9999",
		VendorProject:    "Ivanti",
		Product:          "Connect Secure",
		DateAdded:        "2024-01-10",
		ShortDescription: "Authentication bypass in the web component.",
	}

	item, err := ApplyKEV(nil, entry)
	require.NoError(t, err)

	assert.Equal(t, "CVE-2023-9999", item.ID)
	assert.True(t, item.Exploited)
	assert.Equal(t, model.SeverityHigh, item.Severity)
	assert.Equal(t, 7.5, item.CVSSScore)
	assert.Equal(t, []string{"ivanti connect secure"}, item.AffectedProducts)
	assert.Equal(t, "Authentication bypass in the web component.", item.Description)
	require.NotNil(t, item.Exploitation)
	assert.False(t, item.Exploitation.ExploitAvailable)
}

func TestApplyKEVRejectsMalformedID(t *testing.T) {
	_, err := ApplyKEV(nil, feeds.KEVEntry{CVEID: "bogus"})
	assert.Error(t, err)
}
