package correlations

import (
	"github.com/graphql-go/graphql"

	"github.com/threatiq/threatiq-backend/internal/store"
)

// GetQueryFields returns the correlation queries to be mounted in the root schema
func GetQueryFields(correlations store.CorrelationStore) graphql.Fields {
	return graphql.Fields{
		"correlations": &graphql.Field{
			Type: graphql.NewList(CorrelationType),
			Args: graphql.FieldConfigArgument{
				"tenant":    &graphql.ArgumentConfig{Type: graphql.String},
				"minRisk":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				"severity":  &graphql.ArgumentConfig{Type: graphql.String},
				"exploited": &graphql.ArgumentConfig{Type: graphql.Boolean},
				"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveCorrelations(p, correlations)
			},
		},
	}
}
