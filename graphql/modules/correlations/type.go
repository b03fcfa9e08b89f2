// Package correlations defines the GraphQL types and queries for
// tenant correlation records.
package correlations

import (
	"github.com/graphql-go/graphql"
)

// ImpactedSoftwareType names one installed product matched against a threat.
var ImpactedSoftwareType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ImpactedSoftware",
	Fields: graphql.Fields{
		"name":      &graphql.Field{Type: graphql.String},
		"version":   &graphql.Field{Type: graphql.String},
		"endpoints": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

// RiskFactorsType exposes the inputs that produced a risk score.
var RiskFactorsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RiskFactors",
	Fields: graphql.Fields{
		"cvss_score":           &graphql.Field{Type: graphql.Float},
		"exploited_multiplier": &graphql.Field{Type: graphql.Float},
		"endpoint_count":       &graphql.Field{Type: graphql.Int},
		"internet_exposure":    &graphql.Field{Type: graphql.Boolean},
		"critical_system":      &graphql.Field{Type: graphql.Boolean},
	},
})

// ThreatSnapshotType carries the threat fields copied onto a correlation.
var ThreatSnapshotType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ThreatSnapshot",
	Fields: graphql.Fields{
		"severity":          &graphql.Field{Type: graphql.String},
		"exploited":         &graphql.Field{Type: graphql.Boolean},
		"exploit_available": &graphql.Field{Type: graphql.Boolean},
	},
})

// CorrelationType represents one threat-to-tenant impact record.
var CorrelationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Correlation",
	Fields: graphql.Fields{
		"threat_id":              &graphql.Field{Type: graphql.String},
		"tenant_id":              &graphql.Field{Type: graphql.String},
		"impacted_endpoints":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"impacted_software":      &graphql.Field{Type: graphql.NewList(ImpactedSoftwareType)},
		"risk_score":             &graphql.Field{Type: graphql.Int},
		"risk_factors":           &graphql.Field{Type: RiskFactorsType},
		"threat_details":         &graphql.Field{Type: ThreatSnapshotType},
		"action_recommendations": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"last_checked":           &graphql.Field{Type: graphql.DateTime},
	},
})
