package onboarding

import (
	"context"
	"database/sql"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agomzy/hookrelay/internal/db"
)

type fakeStore struct {
	mu           sync.Mutex
	integrations []db.Integration
}

func (f *fakeStore) CreateIntegration(_ context.Context, repo, chatID, secret string) (db.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	integration := db.Integration{
		ID:     int64(len(f.integrations) + 1),
		Repo:   repo,
		ChatID: chatID,
		Secret: secret,
	}
	f.integrations = append(f.integrations, integration)
	return integration, nil
}

func (f *fakeStore) GetIntegrationByRepoAndSecret(_ context.Context, repo, secret string) (db.Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, integration := range f.integrations {
		if strings.EqualFold(integration.Repo, repo) && integration.Secret == secret {
			return integration, nil
		}
	}
	return db.Integration{}, sql.ErrNoRows
}

type fakeOracle struct {
	exists bool
}

func (f *fakeOracle) Exists(context.Context, string) (bool, error) {
	return f.exists, nil
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSender) SendMessage(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeSender) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMachine(store IntegrationStore, oracle RepoOracle, sender Sender) *Machine {
	sessions := NewSessionStore(30*time.Minute, nil)
	return NewMachine(sessions, store, oracle, sender, "https://hookrelay.example.com", testLogger())
}

func TestStartGreetingPromptsForRepo(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	machine := newTestMachine(&fakeStore{}, &fakeOracle{exists: true}, sender)

	if err := machine.HandleMessage(context.Background(), "1001", "/start"); err != nil {
		t.Fatalf("handle /start: %v", err)
	}
	if !strings.Contains(sender.last(), "Welcome to *Hookrelay*") {
		t.Fatalf("expected welcome message, got %q", sender.last())
	}
}

func TestValidRepoAdvancesToSecretPrompt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := &fakeSender{}
	machine := newTestMachine(&fakeStore{}, &fakeOracle{exists: true}, sender)

	if err := machine.HandleMessage(ctx, "1001", "/start"); err != nil {
		t.Fatalf("handle /start: %v", err)
	}
	if err := machine.HandleMessage(ctx, "1001", "octocat/hello-world"); err != nil {
		t.Fatalf("handle repo: %v", err)
	}
	if sender.last() != secretPromptMessage {
		t.Fatalf("expected secret prompt, got %q", sender.last())
	}
}

func TestInvalidRepoFormatStaysInState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := &fakeSender{}
	machine := newTestMachine(&fakeStore{}, &fakeOracle{exists: true}, sender)

	_ = machine.HandleMessage(ctx, "1001", "/start")
	for _, input := range []string{"no-slash", "too/many/slashes", "bad chars/repo", "owner/"} {
		if err := machine.HandleMessage(ctx, "1001", input); err != nil {
			t.Fatalf("handle %q: %v", input, err)
		}
		if sender.last() != invalidRepoFormatMessage {
			t.Fatalf("expected format error for %q, got %q", input, sender.last())
		}
	}

	// A later valid repo still works from the same state.
	if err := machine.HandleMessage(ctx, "1001", "octocat/hello-world"); err != nil {
		t.Fatalf("handle valid repo: %v", err)
	}
	if sender.last() != secretPromptMessage {
		t.Fatalf("expected secret prompt after retry, got %q", sender.last())
	}
}

func TestUnknownRepoStaysInState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := &fakeSender{}
	machine := newTestMachine(&fakeStore{}, &fakeOracle{exists: false}, sender)

	_ = machine.HandleMessage(ctx, "1001", "/start")
	if err := machine.HandleMessage(ctx, "1001", "octocat/no-such-repo"); err != nil {
		t.Fatalf("handle repo: %v", err)
	}
	if sender.last() != repoNotFoundMessage {
		t.Fatalf("expected not-found message, got %q", sender.last())
	}
}

func TestNoneGeneratesSecretAndPersistsIntegration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeStore{}
	sender := &fakeSender{}
	machine := newTestMachine(store, &fakeOracle{exists: true}, sender)

	_ = machine.HandleMessage(ctx, "1001", "/start")
	_ = machine.HandleMessage(ctx, "1001", "octocat/hello-world")
	if err := machine.HandleMessage(ctx, "1001", "NONE"); err != nil {
		t.Fatalf("handle none: %v", err)
	}

	if len(store.integrations) != 1 {
		t.Fatalf("expected one persisted integration, got %d", len(store.integrations))
	}
	secret := store.integrations[0].Secret
	if len(secret) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", secret)
	}
	if _, err := hex.DecodeString(secret); err != nil {
		t.Fatalf("secret is not hex: %v", err)
	}
	if secret != strings.ToLower(secret) {
		t.Fatalf("expected lowercase hex, got %q", secret)
	}

	messages := sender.all()
	if len(messages) < 2 {
		t.Fatalf("expected completion and done messages, got %v", messages)
	}
	completion := messages[len(messages)-2]
	if !strings.Contains(completion, "https://hookrelay.example.com/notifications/github") {
		t.Fatalf("expected webhook URL in completion, got %q", completion)
	}
	if !strings.Contains(completion, secret) {
		t.Fatalf("expected secret in completion, got %q", completion)
	}
	if messages[len(messages)-1] != integrationDoneMessage {
		t.Fatalf("expected final done message, got %q", messages[len(messages)-1])
	}

	// Conversation is cleared: the next message is greeted fresh.
	if err := machine.HandleMessage(ctx, "1001", "anything"); err != nil {
		t.Fatalf("handle post-completion message: %v", err)
	}
	if !strings.Contains(sender.last(), "Welcome to *Hookrelay*") {
		t.Fatalf("expected fresh welcome after completion, got %q", sender.last())
	}
}

func TestExistingSecretIsValidatedNotRewritten(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeStore{}
	if _, err := store.CreateIntegration(ctx, "octocat/hello-world", "1001", "deadbeefdeadbeefdeadbeefdeadbeef"); err != nil {
		t.Fatalf("seed integration: %v", err)
	}
	sender := &fakeSender{}
	machine := newTestMachine(store, &fakeOracle{exists: true}, sender)

	_ = machine.HandleMessage(ctx, "2002", "/start")
	_ = machine.HandleMessage(ctx, "2002", "octocat/hello-world")

	// Wrong secret keeps the conversation alive.
	if err := machine.HandleMessage(ctx, "2002", "wrong-secret"); err != nil {
		t.Fatalf("handle wrong secret: %v", err)
	}
	if sender.last() != invalidSecretMessage {
		t.Fatalf("expected invalid-secret message, got %q", sender.last())
	}

	if err := machine.HandleMessage(ctx, "2002", "deadbeefdeadbeefdeadbeefdeadbeef"); err != nil {
		t.Fatalf("handle valid secret: %v", err)
	}
	if len(store.integrations) != 1 {
		t.Fatalf("expected no new integration, got %d", len(store.integrations))
	}
	messages := sender.all()
	if messages[len(messages)-3] != secretValidMessage {
		t.Fatalf("expected validity confirmation, got %q", messages[len(messages)-3])
	}
	if !strings.Contains(messages[len(messages)-2], "Setup Instructions") {
		t.Fatalf("expected setup instructions, got %q", messages[len(messages)-2])
	}
	if messages[len(messages)-1] != integrationDoneMessage {
		t.Fatalf("expected done message, got %q", messages[len(messages)-1])
	}
}

func TestGreetingResetsMidConversation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := &fakeSender{}
	machine := newTestMachine(&fakeStore{}, &fakeOracle{exists: true}, sender)

	_ = machine.HandleMessage(ctx, "1001", "/start")
	_ = machine.HandleMessage(ctx, "1001", "octocat/hello-world")
	if err := machine.HandleMessage(ctx, "1001", "hello"); err != nil {
		t.Fatalf("handle greeting: %v", err)
	}
	if !strings.Contains(sender.last(), "Welcome to *Hookrelay*") {
		t.Fatalf("expected reset welcome, got %q", sender.last())
	}

	// After the reset, the machine asks for a repository again.
	if err := machine.HandleMessage(ctx, "1001", "octocat/hello-world"); err != nil {
		t.Fatalf("handle repo after reset: %v", err)
	}
	if sender.last() != secretPromptMessage {
		t.Fatalf("expected secret prompt after reset, got %q", sender.last())
	}
}

func TestFirstContactWithoutGreetingGetsWelcome(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	machine := newTestMachine(&fakeStore{}, &fakeOracle{exists: true}, sender)

	if err := machine.HandleMessage(context.Background(), "1001", "what is this"); err != nil {
		t.Fatalf("handle first contact: %v", err)
	}
	if !strings.Contains(sender.last(), "Welcome to *Hookrelay*") {
		t.Fatalf("expected welcome for first contact, got %q", sender.last())
	}
}

func TestAbandonedSessionsExpire(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	sessions := NewSessionStore(30*time.Minute, clock)
	sender := &fakeSender{}
	machine := NewMachine(sessions, &fakeStore{}, &fakeOracle{exists: true}, sender, "https://hookrelay.example.com", testLogger())

	ctx := context.Background()
	_ = machine.HandleMessage(ctx, "1001", "/start")
	_ = machine.HandleMessage(ctx, "1001", "octocat/hello-world")
	if sessions.size() != 1 {
		t.Fatalf("expected one live session, got %d", sessions.size())
	}

	// Beyond the TTL the conversation restarts from scratch.
	current = current.Add(31 * time.Minute)
	if err := machine.HandleMessage(ctx, "1001", "some-secret"); err != nil {
		t.Fatalf("handle post-expiry message: %v", err)
	}
	if !strings.Contains(sender.last(), "Welcome to *Hookrelay*") {
		t.Fatalf("expected fresh welcome after expiry, got %q", sender.last())
	}
}

func TestSweepEvictsOtherExpiredSessions(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	sessions := NewSessionStore(30*time.Minute, clock)
	machine := NewMachine(sessions, &fakeStore{}, &fakeOracle{exists: true}, &fakeSender{}, "https://hookrelay.example.com", testLogger())

	ctx := context.Background()
	_ = machine.HandleMessage(ctx, "1001", "/start")
	_ = machine.HandleMessage(ctx, "2002", "/start")

	current = current.Add(31 * time.Minute)
	_ = machine.HandleMessage(ctx, "3003", "/start")
	if sessions.size() != 1 {
		t.Fatalf("expected expired sessions swept, got %d live", sessions.size())
	}
}

func TestConcurrentChatsDoNotInterfere(t *testing.T) {
	t.Parallel()

	sessions := NewSessionStore(30*time.Minute, nil)

	var wg sync.WaitGroup
	for _, chatID := range []string{"1001", "2002"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				sess := sessions.acquire(chatID)
				sess.state = stateWaitingForRepo
				sessions.release(sess)
			}
		}()
	}
	wg.Wait()

	if sessions.size() != 2 {
		t.Fatalf("expected both sessions live, got %d", sessions.size())
	}
}
