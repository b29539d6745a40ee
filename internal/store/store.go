// Package store is the Postgres-backed persistence layer: a generic
// key-value table for idempotency and trace records, and the
// availability-link table backing package linkstore. It follows the
// teacher's repository.go shape — one struct per table, a shared *sql.DB,
// sql.ErrNoRows translated to a (nil, nil) "not found" result.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Repositories aggregates every table-backed repository this service
// needs, mirroring the teacher's Repositories struct.
type Repositories struct {
	KeyValue   *KeyValueRepository
	Trace      *TraceRepository
	Link       *LinkRepository
	Advisor    *AdvisorRepository
	Client     *ClientRepository
	Policy     *PolicyRepository
	Connection *ConnectionRepository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		KeyValue:   &KeyValueRepository{db: db},
		Trace:      &TraceRepository{db: db},
		Link:       &LinkRepository{db: db},
		Advisor:    &AdvisorRepository{db: db},
		Client:     &ClientRepository{db: db},
		Policy:     &PolicyRepository{db: db},
		Connection: &ConnectionRepository{db: db},
	}
}

// Open opens the Postgres connection pool and applies the teacher's
// connection-pool tuning (bounded idle/open connections, connection
// max lifetime) rather than the driver defaults.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
