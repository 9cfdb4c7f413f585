package database

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// ErrNoDSN is returned when no data source name is configured.
var ErrNoDSN = errors.New("database DSN is empty")

// Open creates and configures a MySQL connection pool and verifies it with a ping.
// The DSN should carry parseTime=true so DATETIME columns scan into time.Time.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	Configure(db)

	if err := db.Ping(); err != nil {
		zap.S().Errorw("error connecting to database", "error", err)
		db.Close()
		return nil, err
	}

	zap.S().Infow("database connection pool established")
	return db, nil
}

// Configure applies the pool settings used for every connection.
func Configure(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
}
