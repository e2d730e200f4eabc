package router

import (
	handlers "github.com/gigapi/compactor/handler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter serves the admin endpoints of a running compactor.
func NewRouter(source handlers.StatsSource, log *zap.Logger) *mux.Router {
	if log == nil {
		log = zap.NewNop()
	}
	h := handlers.Handler{Compactor: source}
	router := newRouter([]*Route{
		{Path: "/health", Methods: []string{"GET"}, Handler: h.Health},
		{Path: "/stats", Methods: []string{"GET"}, Handler: h.Stats},
	}, log)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return router
}
