// Package database opens the MySQL pool shared by the repositories.
package database

import (
	"context"
	"database/sql"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/trekker-booking/internal/config"
)

// DSN builds the driver DSN.  Times are parsed as UTC.  The session's
// innodb_lock_wait_timeout follows the ledger lock bound so that a
// SELECT ... FOR UPDATE waiting on a busy pool row fails with 1205 instead
// of hanging for the server default of 50s.
func DSN(cfg config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{
		"charset":                  "utf8mb4",
		"innodb_lock_wait_timeout": strconv.Itoa(lockWaitSeconds(cfg.LockTimeout)),
	}
	return mc.FormatDSN()
}

// lockWaitSeconds rounds up to whole seconds, the server's granularity.
func lockWaitSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// Open connects to MySQL and pings it within five seconds.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
