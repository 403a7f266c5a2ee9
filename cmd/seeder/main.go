//cmd/seeder/main.go
package main

import (
    "database/sql"
    "fmt"
    "log"
    "os"

    _ "github.com/lib/pq"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS lead_deletions (
    id SERIAL PRIMARY KEY,
    campaign_id INTEGER NOT NULL,
    lead_id INTEGER NOT NULL,
    deleted_at TIMESTAMPTZ NOT NULL
);
`

func main() {
    dsn := os.Getenv("DATABASE_URL")
    db, err := sql.Open("postgres", dsn)
    if err != nil {
        log.Fatal(err)
    }
    defer db.Close()

    if _, err := db.Exec(auditSchema); err != nil {
        log.Fatalf("failed to create audit schema: %v", err)
    }

    fmt.Println("Audit schema created successfully!")
}
