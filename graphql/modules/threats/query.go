package threats

import (
	"github.com/graphql-go/graphql"

	"github.com/threatiq/threatiq-backend/internal/store"
)

// GetQueryFields returns the threat queries to be mounted in the root schema
func GetQueryFields(threats store.ThreatStore) graphql.Fields {
	return graphql.Fields{
		"threats": &graphql.Field{
			Type: graphql.NewList(ThreatType),
			Args: graphql.FieldConfigArgument{
				"severity":  &graphql.ArgumentConfig{Type: graphql.String},
				"exploited": &graphql.ArgumentConfig{Type: graphql.Boolean},
				"days":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveThreats(p, threats)
			},
		},
		"threat": &graphql.Field{
			Type: ThreatType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveThreat(p, threats)
			},
		},
	}
}
