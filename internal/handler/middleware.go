package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/migrations"
)

type contextKey string

const factoryContextKey contextKey = "korm-factory"

// FactoryFromContext returns the request's database factory.
// Returns nil outside WithDatabases.
func FactoryFromContext(ctx context.Context) *korm.Factory {
	f, _ := ctx.Value(factoryContextKey).(*korm.Factory)
	return f
}

// WithDatabases is middleware that gives each request its own database
// factory and closes it, with every database it built, once the request
// has been served.
func WithDatabases(svc *korm.Services, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := svc.NewFactory()
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("close request databases", "error", err)
			}
		}()
		ctx := context.WithValue(r.Context(), factoryContextKey, f)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestFactory returns the request's factory. Outside WithDatabases it
// creates one that release closes.
func requestFactory(r *http.Request, svc *korm.Services) (*korm.Factory, func()) {
	if f := FactoryFromContext(r.Context()); f != nil {
		return f, func() {}
	}
	f := svc.NewFactory()
	return f, func() {
		if err := f.Close(); err != nil {
			slog.Error("close databases", "error", err)
		}
	}
}

// MigrationOptions configures the migrations endpoint.
type MigrationOptions struct {
	// EndpointURL is the path prefix handled by the middleware. The rest of
	// the path names the database.
	EndpointURL string
	// SlidingExpiration is the minimum idle time between two migrations of
	// the same database.
	SlidingExpiration time.Duration
	// TokenSecret, when set, requires an HMAC-signed bearer JWT.
	TokenSecret string
}

// DefaultMigrationOptions returns the options used when none are given.
func DefaultMigrationOptions() MigrationOptions {
	return MigrationOptions{
		EndpointURL:       "/kormmigration",
		SlidingExpiration: migrations.DefaultWindow,
	}
}

// Migrations is middleware serving the migrations endpoint. A request to
// EndpointURL/<name> runs the migrations of database <name>; an empty name
// means the default database. Requests for databases without a migrations
// runner, and requests outside the endpoint, go to next. A database is
// migrated at most once per sliding window; later requests are answered
// as skipped. With a TokenSecret every request under EndpointURL must
// carry a valid bearer token.
func Migrations(opts MigrationOptions, svc *korm.Services, cache *migrations.Cache, next http.Handler) http.Handler {
	endpoint := strings.TrimSuffix(opts.EndpointURL, "/")
	if endpoint == "" {
		endpoint = DefaultMigrationOptions().EndpointURL
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest, ok := strings.CutPrefix(r.URL.Path, endpoint)
		if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
			next.ServeHTTP(w, r)
			return
		}
		if opts.TokenSecret != "" {
			if err := validateBearer(r, []byte(opts.TokenSecret)); err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		name := strings.Trim(rest, "/")
		if name == "" {
			name = domain.DefaultConnectionName
		}

		f, release := requestFactory(r, svc)
		defer release()
		runner, err := f.MigrationsRunner(name)
		if err != nil && !errors.Is(err, domain.ErrInvalidName) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runner == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !cache.TryAcquire(name) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "database": name})
			return
		}
		// The run is not tied to the client connection.
		if err := runner.Migrate(context.WithoutCancel(r.Context())); err != nil {
			cache.Forget(name)
			slog.Error("migrate database", "name", name, "error", err)
			writeError(w, http.StatusInternalServerError, "migrate "+name+": "+err.Error())
			return
		}
		slog.Info("database migrated", "name", name)
		writeJSON(w, http.StatusOK, map[string]string{"status": "migrated", "database": name})
	})
}
