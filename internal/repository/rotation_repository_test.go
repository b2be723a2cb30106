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

func newRotationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRotationRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRotationMock(t)
	defer cleanup()
	repo := NewRotationRepository(db)

	mock.ExpectExec("INSERT INTO rotation_queue_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), &models.RotationQueueEntry{TopicID: "topic-1", Position: 3, TimeboxMinutes: 45})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryMaxPositionEmpty(t *testing.T) {
	db, mock, cleanup := newRotationMock(t)
	defer cleanup()
	repo := NewRotationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(position), 0) FROM rotation_queue_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	max, err := repo.MaxPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryRemoveAndReindex(t *testing.T) {
	db, mock, cleanup := newRotationMock(t)
	defer cleanup()
	repo := NewRotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT position FROM rotation_queue_entries WHERE topic_id = $1")).
		WithArgs("topic-2").
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rotation_queue_entries WHERE topic_id = $1")).
		WithArgs("topic-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rotation_queue_entries SET position = position - 1, updated_at = $2 WHERE position > $1")).
		WithArgs(2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.RemoveAndReindex(context.Background(), "topic-2")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositorySwapPositions(t *testing.T) {
	db, mock, cleanup := newRotationMock(t)
	defer cleanup()
	repo := NewRotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rotation_queue_entries SET position = $2, updated_at = $3 WHERE topic_id = $1")).
		WithArgs("topic-a", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rotation_queue_entries SET position = $2, updated_at = $3 WHERE topic_id = $1")).
		WithArgs("topic-b", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SwapPositions(context.Background(), "topic-a", 1, "topic-b", 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryListDetails(t *testing.T) {
	db, mock, cleanup := newRotationMock(t)
	defer cleanup()
	repo := NewRotationRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"topic_id", "position", "timebox_minutes", "created_at", "updated_at", "topic_name", "subject_name", "last_studied_at"}).
		AddRow("topic-1", 1, 30, now, now, "Função Afim", "Matemática", now.Add(-48*time.Hour)).
		AddRow("topic-2", 2, 45, now, now, "Crase", "Português", nil)
	mock.ExpectQuery("SELECT q.topic_id, q.position").WillReturnRows(rows)

	entries, err := repo.ListDetails(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Position)
	assert.Nil(t, entries[1].LastStudiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepositoryLatestStudiedQueuedTopicEmpty(t *testing.T) {
	db, mock, cleanup := newRotationMock(t)
	defer cleanup()
	repo := NewRotationRepository(db)

	mock.ExpectQuery("SELECT e.topic_id FROM study_log_entries").
		WillReturnError(sql.ErrNoRows)

	topicID, err := repo.LatestStudiedQueuedTopic(context.Background())
	require.NoError(t, err)
	assert.Nil(t, topicID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
