package turso

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// NewDB opens the identity store. A libsql, http or https URL connects to a
// remote Turso database with authToken; anything else is a local file path.
func NewDB(databaseURL, authToken string) (*sql.DB, error) {
	remote := isRemote(databaseURL)

	dsn := databaseURL
	switch {
	case remote && authToken != "":
		dsn = databaseURL + "?authToken=" + authToken
	case !remote && !strings.HasPrefix(dsn, "file:"):
		dsn = "file:" + dsn
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if remote {
		// Turso drops idle streams aggressively; stale pooled connections
		// fail with "stream not found".
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(0)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func isRemote(u string) bool {
	for _, scheme := range []string{"libsql://", "http://", "https://", "wss://", "ws://"} {
		if strings.HasPrefix(u, scheme) {
			return true
		}
	}
	return false
}
