package handler

import (
	"net/http"

	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/migrations"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, svc *korm.Services) {
	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.HandleFunc("GET /readyz", HandleReadyz(svc))

	settings := NewSettingsHandler(svc)
	mux.HandleFunc("GET /settings", settings.HandleList)
	mux.HandleFunc("GET /settings/{key}", settings.HandleGet)
	mux.HandleFunc("PUT /settings/{key}", settings.HandlePut)
}

// New returns the application handler: the routes wrapped by the
// migrations endpoint, inside a per-request database scope.
func New(svc *korm.Services, cache *migrations.Cache, opts MigrationOptions) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)
	return WithDatabases(svc, Migrations(opts, svc, cache, mux))
}
