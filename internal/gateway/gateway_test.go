package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/helsbotje/helsbotje-gpt/internal/domain"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
	"github.com/helsbotje/helsbotje-gpt/internal/persona"
	"github.com/helsbotje/helsbotje-gpt/internal/provider"
)

func TestReplyReturnsProviderTextVerbatim(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{text: "  Vier! 🧮\n"}
	pers := persona.Default()
	gw := New(fp, pers)

	res := gw.Reply(context.Background(), "Wat is 2+2?")
	if res.Text != "  Vier! 🧮\n" {
		t.Fatalf("expected verbatim provider text, got %q", res.Text)
	}
	if res.Outcome != domain.OutcomeOK {
		t.Errorf("expected ok outcome, got %q", res.Outcome)
	}

	if len(fp.prompts) != 1 {
		t.Fatalf("expected one provider call, got %d", len(fp.prompts))
	}
	if fp.prompts[0].SystemPrompt != pers.Instruction {
		t.Error("expected persona instruction as system prompt")
	}
	if fp.prompts[0].UserText != "Wat is 2+2?" {
		t.Errorf("unexpected user text %q", fp.prompts[0].UserText)
	}
}

func TestReplyWithoutProviderDoesNotCall(t *testing.T) {
	t.Parallel()

	gw := New(nil, persona.Default())
	if gw.Configured() {
		t.Fatal("expected gateway to be unconfigured")
	}

	res := gw.Reply(context.Background(), "hallo")
	if res.Text != persona.DefaultNotConfigured {
		t.Errorf("expected not-configured fallback, got %q", res.Text)
	}
	if res.Outcome != domain.OutcomeNotConfigured {
		t.Errorf("expected not_configured outcome, got %q", res.Outcome)
	}
}

func TestReplyProviderFailuresUseFallback(t *testing.T) {
	t.Parallel()

	cases := map[string]*fakeProvider{
		"network":    {err: &provider.ProviderError{Provider: "fake", Err: errors.New("dial tcp: connection refused")}},
		"no content": {err: &provider.ProviderError{Provider: "fake", Err: provider.ErrNoContent}},
		"empty text": {text: ""},
		"canceled":   {err: context.Canceled},
	}
	for name, fp := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			gw := New(fp, persona.Default())
			res := gw.Reply(context.Background(), "hallo")
			if res.Text != persona.DefaultProviderFailure {
				t.Errorf("expected provider failure fallback, got %q", res.Text)
			}
			if res.Outcome != domain.OutcomeProviderError {
				t.Errorf("expected provider_error outcome, got %q", res.Outcome)
			}
			if fp.callCount() != 1 {
				t.Errorf("expected exactly one provider call, got %d", fp.callCount())
			}
		})
	}
}

func TestReplyRecordsExchange(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	fp := &fakeProvider{err: errors.New("quota exceeded")}
	gw := New(fp, persona.Default(), WithRecorder(rec))

	ctx := identity.WithSessionID(context.Background(), "tab-9")
	gw.Reply(ctx, "hallo")
	gw.Close()

	got := rec.recorded()
	if len(got) != 1 {
		t.Fatalf("expected 1 recorded exchange, got %d", len(got))
	}
	ex := got[0]
	if ex.SessionID != "tab-9" {
		t.Errorf("expected session tab-9, got %q", ex.SessionID)
	}
	if ex.Provider != "fake" || ex.Model != "fake-1" {
		t.Errorf("unexpected provider %s/%s", ex.Provider, ex.Model)
	}
	if ex.Outcome != domain.OutcomeProviderError {
		t.Errorf("expected provider_error, got %q", ex.Outcome)
	}
	if ex.ErrorDetail != "quota exceeded" {
		t.Errorf("expected error detail, got %q", ex.ErrorDetail)
	}
	if ex.ReplyText != persona.DefaultProviderFailure {
		t.Errorf("expected fallback reply text, got %q", ex.ReplyText)
	}
}

func TestRecorderFailureDoesNotChangeResult(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{err: errors.New("database is locked")}
	gw := New(&fakeProvider{text: "Potverdorie!"}, persona.Default(), WithRecorder(rec))

	res := gw.Reply(context.Background(), "hallo")
	gw.Close()
	if res.Text != "Potverdorie!" || res.Outcome != domain.OutcomeOK {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	name, model := New(nil, persona.Default()).Describe()
	if name != "" || model != "" {
		t.Errorf("expected empty description, got %s/%s", name, model)
	}
	name, model = New(&fakeProvider{}, persona.Default()).Describe()
	if name != "fake" || model != "fake-1" {
		t.Errorf("unexpected description %s/%s", name, model)
	}
}
