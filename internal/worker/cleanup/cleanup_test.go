package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type mockSessionDeleter struct {
	calls  int
	before time.Time
	n      int64
	err    error
}

func (m *mockSessionDeleter) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.calls++
	m.before = before
	return m.n, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogField はJSONログの中から指定キーを持つ最初のエントリの値を返す。
func findLogField(buf *bytes.Buffer, key string) (any, bool) {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestSessionCleanupJob_Run_UsesCurrentTime(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockSessionDeleter{n: 5}
	job := NewSessionCleanupJob(repo, newTestLogger(&buf))
	fixed := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if n != 5 {
		t.Errorf("deleted = %d, want 5", n)
	}
	if repo.calls != 1 {
		t.Fatalf("DeleteExpired calls = %d, want 1", repo.calls)
	}
	if !repo.before.Equal(fixed) {
		t.Errorf("before = %v, want %v", repo.before, fixed)
	}
}

func TestSessionCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewSessionCleanupJob(&mockSessionDeleter{n: 42}, newTestLogger(&buf))

	_, _ = job.Run(context.Background())

	count, ok := findLogField(&buf, "deleted_count")
	if !ok || count != float64(42) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if _, ok := findLogField(&buf, "duration_ms"); !ok {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestSessionCleanupJob_Run_WrapsRepositoryError(t *testing.T) {
	var buf bytes.Buffer
	job := NewSessionCleanupJob(&mockSessionDeleter{err: sql.ErrConnDone}, newTestLogger(&buf))

	n, err := job.Run(context.Background())
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("expected wrapped sql.ErrConnDone, got %v", err)
	}
	if n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
}

func TestSessionCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	job := NewSessionCleanupJob(&mockSessionDeleter{}, newTestLogger(&buf))

	for i := range 2 {
		n, err := job.Run(context.Background())
		if err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
		if n != 0 {
			t.Errorf("deleted = %d, want 0", n)
		}
	}

	count, ok := findLogField(&buf, "deleted_count")
	if !ok || count != float64(0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}
