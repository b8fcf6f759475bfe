// Package database opens the MySQL pool backing the credential store.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to the users database and verifies the connection before
// returning.  The pool is built through the driver's connector so
// credentials never round-trip through a DSN string.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	conn, err := mysql.NewConnector(poolConfig(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(conn)

	// The auth surface is a handful of point lookups per request; a small
	// pool is enough and keeps connection churn low under login bursts.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// poolConfig fixes the session settings every connection needs: UTC so
// token expiry math never depends on the server's zone, and parsed times
// so DATETIME columns scan into time.Time.
func poolConfig(user, pass, host, port, name string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg
}
