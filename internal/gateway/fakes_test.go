package gateway

import (
	"context"
	"sync"

	"github.com/helsbotje/helsbotje-gpt/internal/domain"
)

type fakeProvider struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	prompts []domain.CompletionRequest
	release chan struct{} // if non-nil, Complete blocks until closed
}

func (f *fakeProvider) Complete(_ context.Context, systemPrompt, userText string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, domain.CompletionRequest{SystemPrompt: systemPrompt, UserText: userText})
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	mu        sync.Mutex
	exchanges []*domain.Exchange
	err       error
}

func (f *fakeRecorder) RecordExchange(_ context.Context, ex *domain.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := *ex
	f.exchanges = append(f.exchanges, &rec)
	return f.err
}

func (f *fakeRecorder) recorded() []*domain.Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Exchange(nil), f.exchanges...)
}
