package correlations

import (
	"github.com/graphql-go/graphql"

	"github.com/threatiq/threatiq-backend/internal/store"
)

// ResolveCorrelations queries correlation records with optional filters.
func ResolveCorrelations(p graphql.ResolveParams, correlations store.CorrelationStore) (interface{}, error) {
	filter := store.CorrelationFilter{}

	if tenant, ok := p.Args["tenant"].(string); ok {
		filter.TenantID = tenant
	}
	if minRisk, ok := p.Args["minRisk"].(int); ok {
		filter.MinRisk = minRisk
	}
	if severity, ok := p.Args["severity"].(string); ok {
		filter.Severity = severity
	}
	if exploited, ok := p.Args["exploited"].(bool); ok {
		filter.Exploited = &exploited
	}
	if limit, ok := p.Args["limit"].(int); ok {
		filter.Limit = limit
	}

	return correlations.Query(p.Context, filter)
}
