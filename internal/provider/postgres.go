package provider

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/msomdec/kormkit/internal/domain"
)

func pgxConfig(settings domain.ConnectionSettings) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(settings.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if settings.ApplicationName != "" {
		cfg.RuntimeParams["application_name"] = settings.ApplicationName
	}
	return cfg, nil
}

func openPgx(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
	cfg, err := pgxConfig(settings)
	if err != nil {
		return nil, err
	}
	return ping(ctx, stdlib.OpenDB(*cfg))
}

// pqConnectionString adds application_name to a lib/pq connection string
// in either URL or key/value form.
func pqConnectionString(settings domain.ConnectionSettings) (string, error) {
	dsn := settings.ConnectionString
	if settings.ApplicationName == "" {
		return dsn, nil
	}
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse connection string: %w", err)
		}
		q := u.Query()
		q.Set("application_name", settings.ApplicationName)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	name := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(settings.ApplicationName)
	return dsn + " application_name='" + name + "'", nil
}

func openPostgres(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
	dsn, err := pqConnectionString(settings)
	if err != nil {
		return nil, err
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	return ping(ctx, sql.OpenDB(connector))
}
