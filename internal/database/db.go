package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/listing-platform/internal/config"
)

// DSN builds the MySQL data source name for cfg.
func DSN(cfg config.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Pass
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + cfg.Port
	mc.DBName = cfg.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(cfg config.MySQLConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

var authSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(150) NOT NULL,
		email VARCHAR(254) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		is_staff TINYINT(1) NOT NULL DEFAULT 0,
		is_superuser TINYINT(1) NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		date_joined DATETIME(6) NOT NULL,
		UNIQUE KEY uq_accounts_username (username),
		UNIQUE KEY uq_accounts_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS auth_tokens (
		token_hash CHAR(64) NOT NULL PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_auth_tokens_account (account_id),
		CONSTRAINT fk_auth_tokens_account FOREIGN KEY (account_id) REFERENCES accounts (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureAuthSchema creates the accounts and auth_tokens tables when missing.
func EnsureAuthSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range authSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure auth schema: %w", err)
		}
	}
	return nil
}
