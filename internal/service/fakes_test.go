package service

import (
	"context"
	"sync/atomic"

	"listingsearch/internal/model"
)

type fakeGenerator struct {
	text  string
	err   error
	calls int32
	block bool
	last  string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func (f *fakeGenerator) Name() string { return "fake" }

type fakeExecutor struct {
	rows  []model.DbRow
	err   error
	calls int32
	last  string
}

func (f *fakeExecutor) Execute(_ context.Context, query string) ([]model.DbRow, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last = query
	return f.rows, f.err
}
