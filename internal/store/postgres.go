package store

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

type PgRepository struct {
	conn *sql.DB
	// id generators, overridable in tests
	newConversationId func() (string, error)
	newMessageId      func() string
}

// Open opens a Postgres connection and verifies it with a ping. The returned
// handle is shared with the presence tracker.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func NewPgRepository(conn *sql.DB) *PgRepository {
	return &PgRepository{
		conn:              conn,
		newConversationId: shortid.Generate,
		newMessageId:      uuid.NewString,
	}
}

func (db *PgRepository) Ping() error {
	return db.conn.Ping()
}
