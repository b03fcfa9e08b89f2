// Package graphql assembles the read schema served on the dashboard endpoint.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/threatiq/threatiq-backend/graphql/modules/correlations"
	"github.com/threatiq/threatiq-backend/graphql/modules/threats"
	"github.com/threatiq/threatiq-backend/internal/store"
)

// Stores bundles the read-side stores the schema resolves against.
type Stores struct {
	Threats      store.ThreatStore
	Correlations store.CorrelationStore
}

// NewSchema builds the root query schema over the given stores.
func NewSchema(stores Stores) (graphql.Schema, error) {
	fields := graphql.Fields{}

	for name, field := range threats.GetQueryFields(stores.Threats) {
		fields[name] = field
	}
	for name, field := range correlations.GetQueryFields(stores.Correlations) {
		fields[name] = field
	}

	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: rootQuery,
	})
}
