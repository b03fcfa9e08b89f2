// Package threats defines the GraphQL types and queries for threat items.
package threats

import (
	"github.com/graphql-go/graphql"
)

// ExploitationDetailsType mirrors the exploited-list context on an item.
var ExploitationDetailsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ExploitationDetails",
	Fields: graphql.Fields{
		"campaign":          &graphql.Field{Type: graphql.String},
		"indicators":        &graphql.Field{Type: graphql.String},
		"exploit_available": &graphql.Field{Type: graphql.Boolean},
		"required_action":   &graphql.Field{Type: graphql.String},
	},
})

// ThreatType represents one canonical vulnerability disclosure.
var ThreatType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Threat",
	Fields: graphql.Fields{
		"id":                   &graphql.Field{Type: graphql.String},
		"severity":             &graphql.Field{Type: graphql.String},
		"cvss_score":           &graphql.Field{Type: graphql.Float},
		"exploited":            &graphql.Field{Type: graphql.Boolean},
		"affected_products":    &graphql.Field{Type: graphql.NewList(graphql.String)},
		"description":          &graphql.Field{Type: graphql.String},
		"published_date":       &graphql.Field{Type: graphql.DateTime},
		"source":               &graphql.Field{Type: graphql.String},
		"references":           &graphql.Field{Type: graphql.NewList(graphql.String)},
		"exploitation_date":    &graphql.Field{Type: graphql.DateTime},
		"exploitation_details": &graphql.Field{Type: ExploitationDetailsType},
	},
})
