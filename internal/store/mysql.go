package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"sam-backup/internal/errors"
	"sam-backup/internal/logging"
)

// MySQLConfig holds connection settings for the MySQL-backed store
type MySQLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// DSN builds the driver connection string
func (c MySQLConfig) DSN() string {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, timeout)
}

// MySQLStore is a Store backed by a MySQL database. String lists are stored
// as JSON columns; evidence links live in the evidence_people and
// evidence_contexts join tables.
type MySQLStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewMySQLStore wraps an existing database handle. The handle is owned by
// the caller.
func NewMySQLStore(db *sql.DB, logger *logging.Logger) *MySQLStore {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MySQLStore{db: db, logger: logger}
}

// ConnectMySQL opens a connection pool and verifies it with a ping
func ConnectMySQL(ctx context.Context, config MySQLConfig, logger *logging.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, errors.NewStoreError("failed to open database connection", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewStoreError("failed to ping database", err).
			WithContext("host", config.Host).
			WithContext("database", config.Database)
	}

	return NewMySQLStore(db, logger), nil
}

// Close releases the underlying connection pool
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// ListPeople returns all people ordered by primary key
func (s *MySQLStore) ListPeople(ctx context.Context) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, roles, interaction_count, notes, alerts FROM people ORDER BY id")
	if err != nil {
		return nil, errors.NewStoreError("failed to query people", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		var roles, notes, alerts []byte
		if err := rows.Scan(&p.ID, &p.Name, &roles, &p.InteractionCount, &notes, &alerts); err != nil {
			return nil, errors.NewStoreError("failed to scan person row", err)
		}
		if p.Roles, err = decodeStringList(roles); err != nil {
			return nil, errors.NewStoreError("failed to decode person roles", err).WithContext("id", p.ID)
		}
		if p.Notes, err = decodeStringList(notes); err != nil {
			return nil, errors.NewStoreError("failed to decode person notes", err).WithContext("id", p.ID)
		}
		if p.Alerts, err = decodeStringList(alerts); err != nil {
			return nil, errors.NewStoreError("failed to decode person alerts", err).WithContext("id", p.ID)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate people rows", err)
	}
	return people, nil
}

// ListContexts returns all contexts ordered by primary key
func (s *MySQLStore) ListContexts(ctx context.Context) ([]Context, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, tags, meeting_count, notes, alerts FROM contexts ORDER BY id")
	if err != nil {
		return nil, errors.NewStoreError("failed to query contexts", err)
	}
	defer rows.Close()

	var contexts []Context
	for rows.Next() {
		var c Context
		var tags, notes, alerts []byte
		if err := rows.Scan(&c.ID, &c.Name, &tags, &c.MeetingCount, &notes, &alerts); err != nil {
			return nil, errors.NewStoreError("failed to scan context row", err)
		}
		if c.Tags, err = decodeStringList(tags); err != nil {
			return nil, errors.NewStoreError("failed to decode context tags", err).WithContext("id", c.ID)
		}
		if c.Notes, err = decodeStringList(notes); err != nil {
			return nil, errors.NewStoreError("failed to decode context notes", err).WithContext("id", c.ID)
		}
		if c.Alerts, err = decodeStringList(alerts); err != nil {
			return nil, errors.NewStoreError("failed to decode context alerts", err).WithContext("id", c.ID)
		}
		contexts = append(contexts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate context rows", err)
	}
	return contexts, nil
}

// ListEvidence returns all evidence ordered by primary key, with links
// resolved from the join tables
func (s *MySQLStore) ListEvidence(ctx context.Context) ([]Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, body, captured_at, tags FROM evidence ORDER BY id")
	if err != nil {
		return nil, errors.NewStoreError("failed to query evidence", err)
	}
	defer rows.Close()

	var evidence []Evidence
	for rows.Next() {
		var e Evidence
		var tags []byte
		if err := rows.Scan(&e.ID, &e.Title, &e.Body, &e.CapturedAt, &tags); err != nil {
			return nil, errors.NewStoreError("failed to scan evidence row", err)
		}
		if e.Tags, err = decodeStringList(tags); err != nil {
			return nil, errors.NewStoreError("failed to decode evidence tags", err).WithContext("id", e.ID)
		}
		evidence = append(evidence, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate evidence rows", err)
	}

	for i := range evidence {
		if evidence[i].PersonIDs, err = s.listLinks(ctx, "evidence_people", "person_id", evidence[i].ID); err != nil {
			return nil, err
		}
		if evidence[i].ContextIDs, err = s.listLinks(ctx, "evidence_contexts", "context_id", evidence[i].ID); err != nil {
			return nil, err
		}
	}
	return evidence, nil
}

func (s *MySQLStore) listLinks(ctx context.Context, table, column, evidenceID string) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE evidence_id = ? ORDER BY %s", column, table, column)
	rows, err := s.db.QueryContext(ctx, query, evidenceID)
	if err != nil {
		return nil, errors.NewStoreError("failed to query evidence links", err).WithContext("table", table)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewStoreError("failed to scan evidence link row", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate evidence link rows", err)
	}
	return ids, nil
}

// InsertPerson inserts a person, preserving its ID
func (s *MySQLStore) InsertPerson(ctx context.Context, p Person) error {
	roles, notes, alerts, err := encodeStringLists(p.Roles, p.Notes, p.Alerts)
	if err != nil {
		return errors.NewStoreError("failed to encode person fields", err).WithContext("id", p.ID)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO people (id, name, roles, interaction_count, notes, alerts) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, roles, p.InteractionCount, notes, alerts)
	if err != nil {
		return errors.NewStoreError("failed to insert person", err).WithContext("id", p.ID)
	}
	return nil
}

// InsertContext inserts a context, preserving its ID
func (s *MySQLStore) InsertContext(ctx context.Context, c Context) error {
	tags, notes, alerts, err := encodeStringLists(c.Tags, c.Notes, c.Alerts)
	if err != nil {
		return errors.NewStoreError("failed to encode context fields", err).WithContext("id", c.ID)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO contexts (id, name, tags, meeting_count, notes, alerts) VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.Name, tags, c.MeetingCount, notes, alerts)
	if err != nil {
		return errors.NewStoreError("failed to insert context", err).WithContext("id", c.ID)
	}
	return nil
}

// InsertEvidence inserts an evidence entity without its links
func (s *MySQLStore) InsertEvidence(ctx context.Context, e Evidence) error {
	tags, err := json.Marshal(emptyIfNil(e.Tags))
	if err != nil {
		return errors.NewStoreError("failed to encode evidence tags", err).WithContext("id", e.ID)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO evidence (id, title, body, captured_at, tags) VALUES (?, ?, ?, ?, ?)",
		e.ID, e.Title, e.Body, e.CapturedAt, tags)
	if err != nil {
		return errors.NewStoreError("failed to insert evidence", err).WithContext("id", e.ID)
	}
	return nil
}

// SetEvidenceLinks replaces the links of an existing evidence entity
func (s *MySQLStore) SetEvidenceLinks(ctx context.Context, evidenceID string, personIDs, contextIDs []string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM evidence_people WHERE evidence_id = ?", evidenceID); err != nil {
		return errors.NewStoreError("failed to clear evidence person links", err).WithContext("id", evidenceID)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM evidence_contexts WHERE evidence_id = ?", evidenceID); err != nil {
		return errors.NewStoreError("failed to clear evidence context links", err).WithContext("id", evidenceID)
	}

	for _, personID := range personIDs {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO evidence_people (evidence_id, person_id) VALUES (?, ?)",
			evidenceID, personID); err != nil {
			return errors.NewStoreError("failed to insert evidence person link", err).
				WithContext("evidence_id", evidenceID).
				WithContext("person_id", personID)
		}
	}
	for _, contextID := range contextIDs {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO evidence_contexts (evidence_id, context_id) VALUES (?, ?)",
			evidenceID, contextID); err != nil {
			return errors.NewStoreError("failed to insert evidence context link", err).
				WithContext("evidence_id", evidenceID).
				WithContext("context_id", contextID)
		}
	}
	return nil
}

// DeleteAllEvidence removes every evidence entity and its links
func (s *MySQLStore) DeleteAllEvidence(ctx context.Context) error {
	// Join tables first so foreign key constraints never fire
	for _, stmt := range []string{
		"DELETE FROM evidence_people",
		"DELETE FROM evidence_contexts",
		"DELETE FROM evidence",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewStoreError("failed to delete evidence", err)
		}
	}
	return nil
}

// DeleteAllContexts removes every context entity
func (s *MySQLStore) DeleteAllContexts(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM contexts"); err != nil {
		return errors.NewStoreError("failed to delete contexts", err)
	}
	return nil
}

// DeleteAllPeople removes every person entity
func (s *MySQLStore) DeleteAllPeople(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM people"); err != nil {
		return errors.NewStoreError("failed to delete people", err)
	}
	return nil
}

func decodeStringList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func encodeStringLists(a, b, c []string) ([]byte, []byte, []byte, error) {
	ea, err := json.Marshal(emptyIfNil(a))
	if err != nil {
		return nil, nil, nil, err
	}
	eb, err := json.Marshal(emptyIfNil(b))
	if err != nil {
		return nil, nil, nil, err
	}
	ec, err := json.Marshal(emptyIfNil(c))
	if err != nil {
		return nil, nil, nil, err
	}
	return ea, eb, ec, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
