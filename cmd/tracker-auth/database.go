package main

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// openDatabase opens the configured store. SQLite runs on a single connection.
func openDatabase(cfg DatabaseConfig) (*bun.DB, error) {
	switch strings.ToLower(cfg.Driver) {
	case driverSQLite, "sqlite3", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case driverPostgres, "pg", "pgx":
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// registerTxOptions returns the isolation Register needs on the driver
func registerTxOptions(cfg DatabaseConfig) *sql.TxOptions {
	switch strings.ToLower(cfg.Driver) {
	case driverPostgres, "pg", "pgx":
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil
	}
}
