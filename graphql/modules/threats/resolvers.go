package threats

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/threatiq/threatiq-backend/internal/store"
)

// ResolveThreats fetches threat items with optional filters.
func ResolveThreats(p graphql.ResolveParams, threats store.ThreatStore) (interface{}, error) {
	filter := store.ThreatFilter{}

	if severity, ok := p.Args["severity"].(string); ok {
		filter.Severity = severity
	}
	if exploited, ok := p.Args["exploited"].(bool); ok {
		filter.Exploited = &exploited
	}
	if days, ok := p.Args["days"].(int); ok && days > 0 {
		filter.Since = time.Now().UTC().AddDate(0, 0, -days)
	}
	if limit, ok := p.Args["limit"].(int); ok {
		filter.Limit = limit
	}

	return threats.List(p.Context, filter)
}

// ResolveThreat fetches one threat item by disclosure id.
func ResolveThreat(p graphql.ResolveParams, threats store.ThreatStore) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	return threats.Get(p.Context, id)
}
