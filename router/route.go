package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Route struct {
	Path    string
	Methods []string
	Handler func(w http.ResponseWriter, r *http.Request) error
}

func WithErrorHandle(log *zap.Logger, hndl func(w http.ResponseWriter, r *http.Request) error,
) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		err := hndl(w, r)
		if err != nil {
			log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
			w.WriteHeader(500)
			w.Write([]byte(err.Error()))
		}
	}
}

func newRouter(routes []*Route, log *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	for _, r := range routes {
		router.HandleFunc(r.Path, WithErrorHandle(log, r.Handler)).Methods(r.Methods...)
	}
	return router
}
