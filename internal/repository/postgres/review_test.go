package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Flare200/natours/pkg/errors"
)

func TestReviewRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.TourID, rv.UserID, rv.Rating, rv.Review, rv.CreatedAt, rv.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &rv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_DuplicatePerTour(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.TourID, rv.UserID, rv.Rating, rv.Review, rv.CreatedAt, rv.UpdatedAt).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &rv)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs(rv.ID).
		WillReturnRows(pgxmock.NewRows(reviewColumnNames).AddRow(reviewRow(rv)...))

	result, err := repo.GetByID(context.Background(), rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv.TourID, result.TourID)
	assert.Equal(t, 5, result.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(reviewColumnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectExec("UPDATE reviews").
		WithArgs(rv.ID, rv.Rating, rv.Review, rv.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &rv)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Delete_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectExec("DELETE FROM reviews").
		WithArgs("review-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "review-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByTourID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE tour_id").
		WithArgs(rv.TourID, 20, 0).
		WillReturnRows(
			pgxmock.NewRows(reviewColumnsWithCount).
				AddRow(append(reviewRow(rv), 42)...),
		)

	reviews, total, err := repo.ListByTourID(context.Background(), rv.TourID, 20, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 42, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_AggregateForTour_WithReviews(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(rating\), 0\)`).
		WithArgs("tour-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg"}).AddRow(3, 4.3333333))

	summary, err := repo.AggregateForTour(context.Background(), "tour-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 4.3, summary.Average, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_AggregateForTour_NoReviews(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(rating\), 0\)`).
		WithArgs("tour-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg"}).AddRow(0, 0.0))

	summary, err := repo.AggregateForTour(context.Background(), "tour-1")
	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Average)
	assert.NoError(t, mock.ExpectationsWereMet())
}
