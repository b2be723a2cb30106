package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-prep-api/internal/models"
)

func newPoolMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPoolRepositoryContains(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM active_pool_entries WHERE topic_id = $1 LIMIT 1")).
		WithArgs("topic-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Contains(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepositoryContainsMiss(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	mock.ExpectQuery("SELECT 1 FROM active_pool_entries").
		WithArgs("topic-1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.Contains(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepositoryRemoveReportsMembership(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM active_pool_entries WHERE topic_id = $1")).
		WithArgs("topic-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Remove(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepositoryListWithLastStudied(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"topic_id", "topic_name", "subject_name", "added_at", "last_studied_at"}).
		AddRow("topic-1", "Função Afim", "Matemática", now, now.Add(-72*time.Hour)).
		AddRow("topic-2", "Crase", "Português", now, nil)
	mock.ExpectQuery("SELECT p.topic_id, t.name AS topic_name").WillReturnRows(rows)

	topics, err := repo.ListWithLastStudied(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.NotNil(t, topics[0].LastStudiedAt)
	assert.Nil(t, topics[1].LastStudiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM active_pool_entries").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO active_pool_entries (topic_id, added_at) VALUES ($1, $2)")).
		WithArgs("topic-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO active_pool_entries (topic_id, added_at) VALUES ($1, $2)")).
		WithArgs("topic-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), []string{"topic-1", "topic-2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepositoryReplaceAllEmpty(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM active_pool_entries").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newPoolMock(t)
	defer cleanup()
	repo := NewPoolRepository(db)

	mock.ExpectExec("INSERT INTO active_pool_entries").
		WithArgs("topic-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ActivePoolEntry{TopicID: "topic-1"}
	err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, entry.AddedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
