// Package store records encoding outcomes on the documents table and reads
// back corpus-level statistics. It expects these columns next to the
// document's id and status:
//
//	doc_length     INTEGER
//	unique_terms   INTEGER
//	failure_reason TEXT
//	encoded_at     TIMESTAMPTZ
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

const (
	StatusEncoded = "ENCODED"
	StatusFailed  = "FAILED"
)

// maxReasonLength truncates failure reasons before they are stored.
const maxReasonLength = 512

// CorpusStats summarizes the encoded documents.
type CorpusStats struct {
	Documents int64   `json:"documents"`
	AvgLength float64 `json:"avg_length"`
	Failed    int64   `json:"failed"`
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "document-store"),
	}
}

// MarkEncoded records the document length and number of distinct terms of
// an encoded document.
func (s *Store) MarkEncoded(ctx context.Context, docID string, length uint16, terms int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, doc_length = $2, unique_terms = $3, failure_reason = NULL, encoded_at = NOW() WHERE id = $4`,
		StatusEncoded, int(length), terms, docID,
	)
	if err != nil {
		return fmt.Errorf("marking document %s encoded: %w", docID, err)
	}
	s.warnIfMissing(res, docID)
	return nil
}

// MarkFailed records why a document could not be encoded.
func (s *Store) MarkFailed(ctx context.Context, docID string, reason string) error {
	if len(reason) > maxReasonLength {
		cut := maxReasonLength
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, failure_reason = $2, encoded_at = NOW() WHERE id = $3`,
		StatusFailed, reason, docID,
	)
	if err != nil {
		return fmt.Errorf("marking document %s failed: %w", docID, err)
	}
	s.warnIfMissing(res, docID)
	return nil
}

// CorpusStats counts encoded and failed documents and averages the encoded
// document lengths. The average is what BM25 scoring needs as avgdl.
func (s *Store) CorpusStats(ctx context.Context) (CorpusStats, error) {
	var stats CorpusStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COALESCE(AVG(doc_length) FILTER (WHERE status = $1), 0),
			COUNT(*) FILTER (WHERE status = $2)
		FROM documents`,
		StatusEncoded, StatusFailed,
	).Scan(&stats.Documents, &stats.AvgLength, &stats.Failed)
	if err != nil {
		return CorpusStats{}, fmt.Errorf("querying corpus stats: %w", err)
	}
	return stats, nil
}

func (s *Store) warnIfMissing(res sql.Result, docID string) {
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		s.logger.Warn("document not found when updating status", "doc_id", docID)
	}
}
