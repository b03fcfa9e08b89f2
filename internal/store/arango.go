package store

import (
	"context"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/threatiq/threatiq-backend/database"
	"github.com/threatiq/threatiq-backend/model"
)

// SanitizeKey ensures the database key is valid for ArangoDB.
// Keys cannot contain spaces, slashes, or brackets.
func SanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	replacer := strings.NewReplacer(
		" ", "-",
		"/", "-",
		"[", "",
		"]", "",
		"(", "",
		")", "",
	)
	return replacer.Replace(key)
}

// ArangoThreats is the ArangoDB-backed ThreatStore.
type ArangoThreats struct {
	db database.DBConnection
}

// NewArangoThreats wraps the shared database connection.
func NewArangoThreats(db database.DBConnection) *ArangoThreats {
	return &ArangoThreats{db: db}
}

// Upsert inserts or updates a threat item by its disclosure id. The exploited
// flag only ever transitions false->true, exploitation fields are kept from
// the stored document unless the incoming item carries its own, and affected
// products accumulate as the union of both sightings.
func (s *ArangoThreats) Upsert(ctx context.Context, item *model.ThreatItem) error {
	item.Key = SanitizeKey(item.ID)
	item.UpdatedAt = time.Now().UTC()

	query := `
		UPSERT { _key: @key }
		INSERT @doc
		UPDATE {
			severity: @doc.severity,
			cvss_score: @doc.cvss_score,
			exploited: OLD.exploited || @doc.exploited,
			affected_products: UNIQUE(APPEND(OLD.affected_products, @doc.affected_products)),
			description: @doc.description,
			published_date: @doc.published_date,
			source: @doc.source,
			references: @doc.references,
			exploitation_date: @doc.exploitation_date != null ? @doc.exploitation_date : OLD.exploitation_date,
			exploitation_details: @doc.exploitation_details != null ? @doc.exploitation_details : OLD.exploitation_details,
			created_at: OLD.created_at,
			updated_at: @doc.updated_at
		}
		IN threat
	`
	bindVars := map[string]interface{}{
		"key": item.Key,
		"doc": item,
	}

	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	return cursor.Close()
}

// Get returns the item for a disclosure id, or nil when absent.
func (s *ArangoThreats) Get(ctx context.Context, id string) (*model.ThreatItem, error) {
	query := `RETURN DOCUMENT("threat", @key)`
	bindVars := map[string]interface{}{"key": SanitizeKey(strings.ToUpper(id))}

	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var item *model.ThreatItem
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &item); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// PublishedSince returns items published at or after cutoff.
func (s *ArangoThreats) PublishedSince(ctx context.Context, cutoff time.Time) ([]model.ThreatItem, error) {
	query := `
		FOR t IN threat
			FILTER DATE_TIMESTAMP(t.published_date) >= @cutoff
			RETURN t
	`
	bindVars := map[string]interface{}{"cutoff": cutoff.Unix() * 1000}
	return s.readThreats(ctx, query, bindVars)
}

// List returns items matching the filter, newest first.
func (s *ArangoThreats) List(ctx context.Context, filter ThreatFilter) ([]model.ThreatItem, error) {
	var sb strings.Builder
	sb.WriteString(`FOR t IN threat`)
	bindVars := map[string]interface{}{}

	if filter.Severity != "" {
		sb.WriteString(` FILTER t.severity == @severity`)
		bindVars["severity"] = filter.Severity
	}
	if filter.Exploited != nil {
		sb.WriteString(` FILTER t.exploited == @exploited`)
		bindVars["exploited"] = *filter.Exploited
	}
	if !filter.Since.IsZero() {
		sb.WriteString(` FILTER DATE_TIMESTAMP(t.published_date) >= @since`)
		bindVars["since"] = filter.Since.Unix() * 1000
	}

	sb.WriteString(` SORT t.published_date DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT @limit`)
		bindVars["limit"] = filter.Limit
	}
	sb.WriteString(` RETURN t`)

	return s.readThreats(ctx, sb.String(), bindVars)
}

func (s *ArangoThreats) readThreats(ctx context.Context, query string, bindVars map[string]interface{}) ([]model.ThreatItem, error) {
	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var items []model.ThreatItem
	for cursor.HasMore() {
		var item model.ThreatItem
		if _, err := cursor.ReadDocument(ctx, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ArangoCorrelations is the ArangoDB-backed CorrelationStore.
type ArangoCorrelations struct {
	db database.DBConnection
}

// NewArangoCorrelations wraps the shared database connection.
func NewArangoCorrelations(db database.DBConnection) *ArangoCorrelations {
	return &ArangoCorrelations{db: db}
}

// Upsert overwrites the record for (threat, tenant) wholesale, preserving
// only the original creation timestamp.
func (s *ArangoCorrelations) Upsert(ctx context.Context, corr *model.Correlation) error {
	corr.Key = SanitizeKey(corr.TenantID + ":" + corr.ThreatID)
	corr.UpdatedAt = time.Now().UTC()

	query := `
		UPSERT { tenant_id: @tenant, threat_id: @threat }
		INSERT @doc
		UPDATE MERGE(@doc, { created_at: OLD.created_at })
		IN correlation
	`
	bindVars := map[string]interface{}{
		"tenant": corr.TenantID,
		"threat": corr.ThreatID,
		"doc":    corr,
	}

	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	return cursor.Close()
}

// Query returns records matching the filter, highest risk first.
func (s *ArangoCorrelations) Query(ctx context.Context, filter CorrelationFilter) ([]model.Correlation, error) {
	var sb strings.Builder
	sb.WriteString(`FOR c IN correlation`)
	bindVars := map[string]interface{}{}

	if filter.TenantID != "" {
		sb.WriteString(` FILTER c.tenant_id == @tenant`)
		bindVars["tenant"] = filter.TenantID
	}
	if filter.MinRisk > 0 {
		sb.WriteString(` FILTER c.risk_score >= @minRisk`)
		bindVars["minRisk"] = filter.MinRisk
	}
	if filter.Severity != "" {
		sb.WriteString(` FILTER c.threat_details.severity == @severity`)
		bindVars["severity"] = filter.Severity
	}
	if filter.Exploited != nil {
		sb.WriteString(` FILTER c.threat_details.exploited == @exploited`)
		bindVars["exploited"] = *filter.Exploited
	}

	sb.WriteString(` SORT c.risk_score DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT @limit`)
		bindVars["limit"] = filter.Limit
	}
	sb.WriteString(` RETURN c`)

	cursor, err := s.db.Database.Query(ctx, sb.String(), &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var records []model.Correlation
	for cursor.HasMore() {
		var corr model.Correlation
		if _, err := cursor.ReadDocument(ctx, &corr); err != nil {
			return nil, err
		}
		records = append(records, corr)
	}
	return records, nil
}

// ArangoInventory is the ArangoDB-backed read-only InventoryStore.
type ArangoInventory struct {
	db database.DBConnection
}

// NewArangoInventory wraps the shared database connection.
func NewArangoInventory(db database.DBConnection) *ArangoInventory {
	return &ArangoInventory{db: db}
}

// ListTenants returns all known tenants.
func (s *ArangoInventory) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	query := `FOR t IN tenant RETURN t`

	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var tenants []model.Tenant
	for cursor.HasMore() {
		var tenant model.Tenant
		if _, err := cursor.ReadDocument(ctx, &tenant); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

// GetTenant returns one tenant by id, or nil when absent.
func (s *ArangoInventory) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	query := `
		FOR t IN tenant
			FILTER t.id == @id
			LIMIT 1
			RETURN t
	`
	bindVars := map[string]interface{}{"id": id}

	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var tenant model.Tenant
		if _, err := cursor.ReadDocument(ctx, &tenant); err != nil {
			return nil, err
		}
		return &tenant, nil
	}
	return nil, nil
}

// RecentScans returns up to limit scans for a tenant, newest first.
func (s *ArangoInventory) RecentScans(ctx context.Context, tenantID string, limit int) ([]model.ScanRecord, error) {
	query := `
		FOR s IN scan
			FILTER s.tenant_id == @tenant
			SORT s.scanned_at DESC
			LIMIT @limit
			RETURN s
	`
	bindVars := map[string]interface{}{
		"tenant": tenantID,
		"limit":  limit,
	}

	cursor, err := s.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var scans []model.ScanRecord
	for cursor.HasMore() {
		var scan model.ScanRecord
		if _, err := cursor.ReadDocument(ctx, &scan); err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, nil
}
