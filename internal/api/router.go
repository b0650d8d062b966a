package api

import (
	"net/http"

	"surplus-redistribution-service/internal/api/handlers"
	"surplus-redistribution-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(engine *services.Engine) http.Handler {
	mux := http.NewServeMux()

	cascadeHandler := &handlers.CascadeHandler{Engine: engine}
	routeHandler := &handlers.RouteHandler{Engine: engine}
	locationHandler := &handlers.LocationHandler{Engine: engine}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/cascade/runs", cascadeHandler.Run)
	mux.HandleFunc("/cascade/actions/status", cascadeHandler.UpdateStatus)
	mux.HandleFunc("/routes/plans", routeHandler.Plan)
	mux.HandleFunc("/locations", locationHandler.List)
	mux.HandleFunc("/impact/equivalencies", handlers.Equivalencies)
	mux.Handle("/metrics", promhttp.Handler())

	return requestIDMiddleware(loggingMiddleware(mux))
}
