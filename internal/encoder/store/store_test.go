package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestMarkEncoded(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(`UPDATE documents SET status = \$1, doc_length = \$2, unique_terms = \$3`).
		WithArgs(StatusEncoded, 42, 7, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkEncoded(context.Background(), "doc-1", 42, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEncodedError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(`UPDATE documents`).WillReturnError(errors.New("connection reset"))

	err := s.MarkEncoded(context.Background(), "doc-1", 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc-1")
}

func TestMarkFailedTruncatesReason(t *testing.T) {
	s, mock := newMock(t)
	long := strings.Repeat("x", maxReasonLength+100)
	mock.ExpectExec(`UPDATE documents SET status = \$1, failure_reason = \$2`).
		WithArgs(StatusFailed, long[:maxReasonLength], "doc-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.MarkFailed(context.Background(), "doc-9", long))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedTruncatesOnRuneBoundary(t *testing.T) {
	s, mock := newMock(t)
	long := "x" + strings.Repeat("é", maxReasonLength)
	mock.ExpectExec(`UPDATE documents SET status = \$1, failure_reason = \$2`).
		WithArgs(StatusFailed, "x"+strings.Repeat("é", (maxReasonLength-1)/2), "doc-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkFailed(context.Background(), "doc-9", long))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorpusStats(t *testing.T) {
	s, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"count", "avg", "failed"}).AddRow(10, 12.5, 2)
	mock.ExpectQuery(`SELECT`).WithArgs(StatusEncoded, StatusFailed).WillReturnRows(rows)

	stats, err := s.CorpusStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CorpusStats{Documents: 10, AvgLength: 12.5, Failed: 2}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
