package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"

	"go.uber.org/zap"
)

type fakeBackend struct {
	rows  []model.DbRow
	err   error
	delay time.Duration
	calls int
}

func (f *fakeBackend) Execute(ctx context.Context, query string) ([]model.DbRow, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rows, f.err
}

func (f *fakeBackend) Dialect() model.Dialect { return model.DialectTSQL }
func (f *fakeBackend) Name() string           { return "fake" }
func (f *fakeBackend) Close() error           { return nil }

func TestExecutor_Execute(t *testing.T) {
	backend := &fakeBackend{rows: []model.DbRow{{"property_id": "1"}}}
	exec := NewExecutor(backend, NewStatementGuard(SchemaTables...), time.Second, zap.NewNop())

	rows, err := exec.Execute(context.Background(), "SELECT DISTINCT P.* FROM Properties P")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Execute() returned %d rows, want 1", len(rows))
	}
	if exec.Dialect() != model.DialectTSQL {
		t.Errorf("Dialect() = %s", exec.Dialect())
	}
}

func TestExecutor_NilRowsBecomeEmpty(t *testing.T) {
	exec := NewExecutor(&fakeBackend{}, nil, time.Second, zap.NewNop())

	rows, err := exec.Execute(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rows == nil {
		t.Error("Execute() returned nil, want empty slice")
	}
}

func TestExecutor_GuardBlocksBeforeBackend(t *testing.T) {
	backend := &fakeBackend{}
	exec := NewExecutor(backend, NewStatementGuard(SchemaTables...), time.Second, zap.NewNop())

	_, err := exec.Execute(context.Background(), "DROP TABLE Properties")
	if apperror.KindOf(err) != apperror.KindExecution {
		t.Errorf("Execute() error = %v, want execution error", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times, want 0", backend.calls)
	}
}

func TestExecutor_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		timeout time.Duration
		want    apperror.Kind
	}{
		{
			name:    "driver error",
			backend: &fakeBackend{err: errors.New("Incorrect syntax near 'FROM'")},
			timeout: time.Second,
			want:    apperror.KindExecution,
		},
		{
			name:    "configuration passes through",
			backend: &fakeBackend{err: apperror.Configuration("Missing database configuration: DB_USER")},
			timeout: time.Second,
			want:    apperror.KindConfiguration,
		},
		{
			name:    "timeout",
			backend: &fakeBackend{delay: time.Second},
			timeout: 10 * time.Millisecond,
			want:    apperror.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(tt.backend, nil, tt.timeout, zap.NewNop())
			_, err := exec.Execute(context.Background(), "SELECT 1")
			if got := apperror.KindOf(err); got != tt.want {
				t.Errorf("Execute() kind = %s (%v), want %s", got, err, tt.want)
			}
		})
	}
}

func TestExecutor_EmptyStatement(t *testing.T) {
	exec := NewExecutor(&fakeBackend{}, nil, time.Second, zap.NewNop())
	if _, err := exec.Execute(context.Background(), "  "); apperror.KindOf(err) != apperror.KindExecution {
		t.Errorf("Execute() error = %v, want execution error", err)
	}
}
