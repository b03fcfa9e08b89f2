// Package restapi wires the HTTP surface: REST handlers, the GraphQL
// endpoint, and Prometheus metrics.
package restapi

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	gql "github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threatiq/threatiq-backend/internal/ingest"
	"github.com/threatiq/threatiq-backend/internal/store"
	"github.com/threatiq/threatiq-backend/restapi/modules/admin"
	"github.com/threatiq/threatiq-backend/restapi/modules/correlations"
	"github.com/threatiq/threatiq-backend/restapi/modules/threats"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Threats      store.ThreatStore
	Correlations store.CorrelationStore
	Orchestrator *ingest.Orchestrator
	Schema       gql.Schema
}

// SetupRoutes mounts all API routes on the app.
func SetupRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api/v1")

	api.Post("/graphql", GraphQLHandler(deps.Schema))

	api.Get("/threats", threats.GetThreats(deps.Threats))
	api.Get("/threats/:id", threats.GetThreat(deps.Threats))

	api.Get("/correlations", correlations.GetCorrelations(deps.Correlations))

	api.Post("/admin/ingest", admin.PostTriggerIngestion(deps.Orchestrator))
	api.Get("/admin/status", admin.GetIngestionStatus(deps.Orchestrator))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
