package httpapi

import (
	"expvar"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	get := []string{http.MethodGet, http.MethodHead}
	r.HandleFunc("/batches/batch-list", app.batchListHandler).Methods(get...).Name("batch_list")
	r.HandleFunc("/batch-data/{id}", app.batchDataHandler).Methods(get...).Name("batch_data")
	// paths served by the first version of the source
	r.HandleFunc("/api/batches/batch_list.csv", app.batchListHandler).Methods(get...).Name("batch_list_legacy")
	r.HandleFunc("/api/batch_data/{id}", app.batchDataHandler).Methods(get...).Name("batch_data_legacy")

	r.HandleFunc("/healthz", app.healthHandler).Methods(get...).Name("healthz")
	r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})).Methods(get...).Name("metrics")
	r.Handle("/debug/vars", expvar.Handler()).Methods(get...).Name("debug_vars")
	r.HandleFunc("/openapi.yaml", app.openapiHandler).Methods(get...).Name("openapi")
	r.HandleFunc("/docs", app.docsHandler).Methods(get...).Name("docs")

	return WithRequestID(WithLogging(app.withMetrics(r, r)))
}
