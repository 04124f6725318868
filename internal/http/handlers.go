package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairyhunter13/order-batch-loader/internal/catalog"
	"github.com/fairyhunter13/order-batch-loader/internal/config"
	httpopenapi "github.com/fairyhunter13/order-batch-loader/internal/http/openapi"
	"github.com/fairyhunter13/order-batch-loader/internal/model"
	"github.com/fairyhunter13/order-batch-loader/internal/obs"
)

// App serves the batch catalog over HTTP.
type App struct {
	Cfg      config.Config
	Catalog  *catalog.Dir
	Registry *prometheus.Registry

	metrics *obs.HTTPMetrics
	closing atomic.Bool
	started time.Time
}

func NewApp(cfg config.Config, cat *catalog.Dir) *App {
	reg := prometheus.NewRegistry()
	return &App{
		Cfg:      cfg,
		Catalog:  cat,
		Registry: reg,
		metrics:  obs.NewHTTPMetrics(reg),
		started:  time.Now(),
	}
}

// StartShutdown makes the health check report unavailability.
func (a *App) StartShutdown() { a.closing.Store(true) }

func (a *App) batchListHandler(w http.ResponseWriter, r *http.Request) {
	f, err := a.Catalog.BatchList()
	if err != nil {
		a.fileError(w, r, err, "batch list not found")
		return
	}
	defer f.Close()
	serveCSV(w, r, f)
}

func (a *App) batchDataHandler(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := model.ParseBatchID(raw)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_batch_id", "batch id must be an integer")
		return
	}
	f, err := a.Catalog.BatchData(id)
	if err != nil {
		a.fileError(w, r, err, "batch data not found")
		return
	}
	defer f.Close()
	serveCSV(w, r, f)
}

func (a *App) fileError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, catalog.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", notFound)
		return
	}
	obs.Logger.Error("catalog_read_error", "path", r.URL.Path, "error", err, "request_id", RequestIDFromContext(r.Context()))
	WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
}

func serveCSV(w http.ResponseWriter, r *http.Request, f *os.File) {
	var mod time.Time
	if st, err := f.Stat(); err == nil {
		mod = st.ModTime()
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeContent(w, r, f.Name(), mod, f)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.closing.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "shutting_down"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, docsHTML)
}

const docsHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Batch Source API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
