package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestTranslatePQError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"ユニーク制約違反", &pq.Error{Code: "23505"}, ErrDuplicate},
		{"ラップされたユニーク制約違反", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), ErrDuplicate},
		{"外部キー制約違反", &pq.Error{Code: "23503"}, ErrReferenceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translatePQError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("translatePQError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslatePQError_OtherErrorsPassThrough(t *testing.T) {
	original := &pq.Error{Code: "42P01"}
	if got := translatePQError(original); got != error(original) {
		t.Errorf("translatePQError() = %v, want original error", got)
	}

	plain := errors.New("connection refused")
	if got := translatePQError(plain); got != plain {
		t.Errorf("translatePQError() = %v, want original error", got)
	}
}

func TestNullHelpers(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if got := nullStringValue(sql.NullString{String: "x", Valid: true}); got != "x" {
		t.Errorf("nullStringValue = %q, want %q", got, "x")
	}

	year := 2021
	if got := nullIntValue(nullInt(&year)); got == nil || *got != 2021 {
		t.Errorf("nullInt round trip = %v, want 2021", got)
	}
	if got := nullIntValue(nullInt(nil)); got != nil {
		t.Errorf("nullIntValue(nullInt(nil)) = %v, want nil", *got)
	}
}
