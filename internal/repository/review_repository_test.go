package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

func newReviewMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReviewRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec("INSERT INTO scheduled_reviews").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	review := &models.ScheduledReview{
		OriginEntryID: "entry-1",
		Kind:          models.Review24h,
		DueAt:         time.Now().UTC().Add(24 * time.Hour),
	}
	err := repo.Create(context.Background(), review)
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListPendingDetails(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	asOf := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "origin_entry_id", "fulfilled_by_id", "kind", "due_at", "created_at", "updated_at", "topic_id", "topic_name", "subject_name"}).
		AddRow("rev-1", "entry-1", nil, "24h", asOf.Add(-time.Hour), asOf, asOf, "topic-1", "Função Afim", "Matemática")
	mock.ExpectQuery("SELECT r.id, r.origin_entry_id").
		WithArgs(models.Review24h, asOf).
		WillReturnRows(rows)

	reviews, err := repo.ListPendingDetails(context.Background(), models.Review24h, asOf)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "rev-1", reviews[0].ID)
	assert.True(t, reviews[0].Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCompleteAndChain(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	completedAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_reviews SET fulfilled_by_id = $2, updated_at = $3 WHERE id = $1 AND fulfilled_by_id IS NULL")).
		WithArgs("rev-1", "entry-2", completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scheduled_reviews").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	successor := &models.ScheduledReview{
		OriginEntryID: "entry-1",
		Kind:          models.Review7d,
		DueAt:         completedAt.Add(7 * 24 * time.Hour),
	}
	err := repo.CompleteAndChain(context.Background(), "rev-1", "entry-2", completedAt, successor)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCompleteAndChainTerminal(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	completedAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE scheduled_reviews SET fulfilled_by_id").
		WithArgs("rev-1", "entry-2", completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CompleteAndChain(context.Background(), "rev-1", "entry-2", completedAt, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCompleteAndChainAlreadyFulfilled(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	completedAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE scheduled_reviews SET fulfilled_by_id").
		WithArgs("rev-1", "entry-2", completedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CompleteAndChain(context.Background(), "rev-1", "entry-2", completedAt, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFulfilled.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCountPendingByKind(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	asOf := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"kind", "count"}).
		AddRow("24h", 3).
		AddRow("7d", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, COUNT(*) AS count FROM scheduled_reviews WHERE fulfilled_by_id IS NULL AND due_at <= $1 GROUP BY kind")).
		WithArgs(asOf).
		WillReturnRows(rows)

	counts, err := repo.CountPendingByKind(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.Review24h, counts[0].Kind)
	assert.Equal(t, 3, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
