package provider

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/msomdec/kormkit/internal/domain"
)

func mysqlConfig(settings domain.ConnectionSettings) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(settings.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	// Scan DATETIME columns into time.Time like the other providers.
	cfg.ParseTime = true
	if settings.ApplicationName != "" {
		cfg.ConnectionAttributes = "program_name:" + settings.ApplicationName
	}
	return cfg, nil
}

func openMySQL(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
	cfg, err := mysqlConfig(settings)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	return ping(ctx, sql.OpenDB(connector))
}
