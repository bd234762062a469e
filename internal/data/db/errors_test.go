package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPgErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("insert segments: %w", &pgconn.PgError{Code: code})
	}
	if !IsUniqueViolation(wrap("23505")) {
		t.Fatalf("23505: want unique violation")
	}
	if !IsForeignKeyViolation(wrap("23503")) {
		t.Fatalf("23503: want fk violation")
	}
	for _, code := range []string{"40001", "40P01", "55P03"} {
		if !IsRetryable(wrap(code)) {
			t.Fatalf("%s: want retryable", code)
		}
	}
	if IsRetryable(wrap("23505")) {
		t.Fatalf("23505: want non-retryable")
	}
	if !IsRetryable(fmt.Errorf("q: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline: want retryable")
	}
	if IsRetryable(errors.New("syntax error")) {
		t.Fatalf("plain error: want non-retryable")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil: want non-retryable")
	}
}
