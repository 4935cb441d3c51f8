package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sam-backup/internal/errors"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db, nil), mock
}

func TestMySQLConfig_DSN(t *testing.T) {
	config := MySQLConfig{
		Host:     "localhost",
		Port:     3306,
		Username: "sam",
		Password: "secret",
		Database: "samdb",
		Timeout:  10 * time.Second,
	}

	dsn := config.DSN()
	assert.Contains(t, dsn, "sam:secret@tcp(localhost:3306)/samdb")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=10s")
}

func TestMySQLStore_ListPeople(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "roles", "interaction_count", "notes", "alerts"}).
		AddRow("p1", "Ayla", `["manager"]`, 3, `["intro call"]`, `[]`).
		AddRow("p2", "Deniz", `[]`, 0, `[]`, `["follow up"]`)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, roles, interaction_count, notes, alerts FROM people ORDER BY id")).
		WillReturnRows(rows)

	people, err := s.ListPeople(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "p1", people[0].ID)
	assert.Equal(t, []string{"manager"}, people[0].Roles)
	assert.Equal(t, 3, people[0].InteractionCount)
	assert.Empty(t, people[1].Roles)
	assert.Equal(t, []string{"follow up"}, people[1].Alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_ListEvidence_WithLinks(t *testing.T) {
	s, mock := newMockStore(t)

	capturedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, title, body, captured_at, tags FROM evidence ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "captured_at", "tags"}).
			AddRow("e1", "Review notes", "body text", capturedAt, `["q1"]`))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT person_id FROM evidence_people WHERE evidence_id = ? ORDER BY person_id")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"person_id"}).AddRow("p1").AddRow("p2"))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT context_id FROM evidence_contexts WHERE evidence_id = ? ORDER BY context_id")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"context_id"}).AddRow("c1"))

	evidence, err := s.ListEvidence(context.Background())
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "Review notes", evidence[0].Title)
	assert.Equal(t, capturedAt, evidence[0].CapturedAt)
	assert.Equal(t, []string{"p1", "p2"}, evidence[0].PersonIDs)
	assert.Equal(t, []string{"c1"}, evidence[0].ContextIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_InsertPerson(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO people (id, name, roles, interaction_count, notes, alerts) VALUES (?, ?, ?, ?, ?, ?)")).
		WithArgs("p1", "Ayla", []byte(`["manager"]`), 3, []byte(`[]`), []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.InsertPerson(context.Background(), Person{
		ID:               "p1",
		Name:             "Ayla",
		Roles:            []string{"manager"},
		InteractionCount: 3,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_SetEvidenceLinks_ClearsThenInserts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evidence_people WHERE evidence_id = ?")).
		WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evidence_contexts WHERE evidence_id = ?")).
		WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO evidence_people (evidence_id, person_id) VALUES (?, ?)")).
		WithArgs("e1", "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO evidence_contexts (evidence_id, context_id) VALUES (?, ?)")).
		WithArgs("e1", "c1").WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SetEvidenceLinks(context.Background(), "e1", []string{"p1"}, []string{"c1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_DeleteAllEvidence_Order(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evidence_people")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evidence_contexts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evidence")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteAllEvidence(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_ListPeople_QueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, roles").
		WillReturnError(assert.AnError)

	_, err := s.ListPeople(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsStore(err))
}

func TestMySQLStore_ListPeople_BadListColumn(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "roles", "interaction_count", "notes", "alerts"}).
			AddRow("p1", "Ayla", `not-json`, 0, `[]`, `[]`))

	_, err := s.ListPeople(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsStore(err))
}
