// Package numerator provides the PostgreSQL implementation of document numbering.
package numerator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "procura/internal/core/numerator"
	"procura/internal/infrastructure/storage/postgres"
)

// Querier is the subset of pgx used here.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service hands out numbers from sys_sequences, one row per (prefix, year).
// Called inside the business transaction, so a rolled-back document releases
// its number and numbering stays gap-free.
type Service struct {
	querier func(ctx context.Context) Querier
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator that joins the transaction carried by ctx.
func New(txManager *postgres.TxManager) *Service {
	return &Service{querier: func(ctx context.Context) Querier { return txManager.GetQuerier(ctx) }}
}

// NewWithQuerier creates a numerator bound to a fixed querier.
func NewWithQuerier(q Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return q }}
}

// GetNextNumber increments the sequence and formats PREFIX-YEAR-NNNNN.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, cfg.Prefix, period.Year()).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", cfg.Prefix, err)
	}
	return corenumerator.Format(cfg, period, num), nil
}

// SetNextNumber moves a sequence so that the next number issued is value+1. Used by data imports.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, cfg.Prefix, period.Year(), value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set %s sequence: %w", cfg.Prefix, err)
	}
	return nil
}

// ParseNumber extracts the sequence part of PREFIX-YEAR-NNNNN. Returns -1 if it does not parse.
func ParseNumber(formatted string) int64 {
	parts := strings.Split(formatted, "-")
	if len(parts) != 3 {
		return -1
	}
	var num int64
	if _, err := fmt.Sscanf(parts[2], "%d", &num); err != nil {
		return -1
	}
	return num
}
