// internal/db/db.go
package db

import (
    "database/sql"
    "log"

    _ "github.com/lib/pq"
)

// Connect opens the audit database and verifies it is reachable.
func Connect(dsn string) (*sql.DB, error) {
    conn, err := sql.Open("postgres", dsn)
    if err != nil {
        return nil, err
    }

    if err = conn.Ping(); err != nil {
        conn.Close()
        return nil, err
    }

    log.Println("✅ Connected to audit database")
    return conn, nil
}
