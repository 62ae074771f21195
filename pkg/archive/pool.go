/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package archive persists finished runs to Postgres for trend queries
// across runs.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/fleetvet/pkg/models"
)

const defaultPostgresPort = 5432

var (
	errHostRequired     = errors.New("archive: host is required")
	errDatabaseRequired = errors.New("archive: database is required")
)

// Config describes the archive database connection.
type Config struct {
	Host            string          `json:"host"`
	Port            int             `json:"port,omitempty"`
	Database        string          `json:"database"`
	Username        string          `json:"username,omitempty"`
	Password        string          `json:"password,omitempty"`
	SSLMode         string          `json:"ssl_mode,omitempty"`
	ApplicationName string          `json:"application_name,omitempty"`
	MaxConnections  int32           `json:"max_connections,omitempty"`
	MaxConnLifetime models.Duration `json:"max_conn_lifetime,omitempty"`
}

// NewPool dials the archive database and returns a pgx pool.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.Host == "" {
		return nil, errHostRequired
	}

	if cfg.Database == "" {
		return nil, errDatabaseRequired
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	appName := cfg.ApplicationName
	if appName == "" {
		appName = "fleetvet"
	}

	query.Set("application_name", appName)
	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("archive: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("archive: failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: failed to ping database: %w", err)
	}

	return pool, nil
}
