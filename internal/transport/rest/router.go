package rest

import (
	"database/sql"
	"log/slog"

	"github.com/frahmantamala/vuln-management/internal/auth"
	"github.com/frahmantamala/vuln-management/internal/system"
	"github.com/frahmantamala/vuln-management/internal/transport/middleware"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, pipeline *auth.Pipeline, systemHandler *system.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Mount API under /api/v1
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Get("/login", authHandler.Login)
				sr.Get("/callback", authHandler.Callback)
			})
		}

		if systemHandler != nil && pipeline != nil {
			r.Route("/systems", func(sr chi.Router) {
				sr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteSystemsCreate})).
					Post("/create", systemHandler.CreateSystem)

				sr.Route("/{system_name}", func(nr chi.Router) {
					nr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteAddUser})).
						Post("/add_user", systemHandler.AddUser)
					nr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteReportVuln})).
						Post("/report_vuln", systemHandler.ReportVulnerability)
					nr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteReportVulnsBulk, Bulk: true})).
						Post("/report_vulns_bulk", systemHandler.ReportVulnerabilitiesBulk)
					nr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteUpdateVulnState})).
						Post("/update_vuln_state", systemHandler.UpdateVulnerabilityState)
					nr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteUpdateVulnsStateBulk, Bulk: true})).
						Post("/update_vulns_state_bulk", systemHandler.UpdateVulnerabilitiesStateBulk)
					nr.With(pipeline.Guard(auth.RouteMeta{Name: auth.RouteVulnSummary})).
						Get("/get_vuln_summary", systemHandler.GetVulnerabilitySummary)
				})
			})
		}
	})
}
