// Package onboarding runs the conversational flow that binds a Telegram
// chat to a GitHub repository and its shared webhook secret.
package onboarding

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agomzy/hookrelay/internal/db"
)

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

var greetings = []string{"/start", "hi", "hello"}

// IntegrationStore persists completed bindings and validates re-linked
// secrets.
type IntegrationStore interface {
	CreateIntegration(ctx context.Context, repo, chatID, secret string) (db.Integration, error)
	GetIntegrationByRepoAndSecret(ctx context.Context, repo, secret string) (db.Integration, error)
}

// RepoOracle reports whether a repository exists upstream.
type RepoOracle interface {
	Exists(ctx context.Context, repo string) (bool, error)
}

// Sender delivers replies back to the chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Machine drives onboarding conversations. Safe for concurrent use; messages
// from the same chat are serialized by the session store.
type Machine struct {
	sessions  *SessionStore
	store     IntegrationStore
	oracle    RepoOracle
	sender    Sender
	publicURL string
	log       *slog.Logger
}

func NewMachine(sessions *SessionStore, store IntegrationStore, oracle RepoOracle, sender Sender, publicURL string, log *slog.Logger) *Machine {
	return &Machine{
		sessions:  sessions,
		store:     store,
		oracle:    oracle,
		sender:    sender,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// HandleMessage advances the chat's conversation by one inbound message.
// Conversational errors (bad format, unknown repo, wrong secret) are replied
// to the user and leave the state untouched; only reply-delivery failures
// return an error.
func (m *Machine) HandleMessage(ctx context.Context, chatID, text string) error {
	text = strings.TrimSpace(text)

	sess := m.sessions.acquire(chatID)
	defer m.sessions.release(sess)

	m.log.Info("onboarding message", "chat_id", chatID, "state", sess.state)

	// The greeting resets the conversation from any state.
	if isGreeting(text) {
		sess.state = stateWaitingForRepo
		sess.repo = ""
		return m.sender.SendMessage(ctx, chatID, welcomeMessage)
	}

	switch sess.state {
	case stateStart:
		// First contact without a greeting: prompt the same way /start
		// would, so the user is never left without instructions.
		sess.state = stateWaitingForRepo
		return m.sender.SendMessage(ctx, chatID, welcomeMessage)
	case stateWaitingForRepo:
		return m.handleRepoInput(ctx, chatID, sess, text)
	case stateWaitingForSecret:
		return m.handleSecretInput(ctx, chatID, sess, text)
	default:
		return m.sender.SendMessage(ctx, chatID, welcomeMessage)
	}
}

func (m *Machine) handleRepoInput(ctx context.Context, chatID string, sess *session, text string) error {
	if !repoPattern.MatchString(text) {
		return m.sender.SendMessage(ctx, chatID, invalidRepoFormatMessage)
	}

	exists, err := m.oracle.Exists(ctx, text)
	if err != nil {
		m.log.Error("repository existence check failed", "chat_id", chatID, "repo", text, "error", err)
		return m.sender.SendMessage(ctx, chatID, transientErrorMessage)
	}
	if !exists {
		return m.sender.SendMessage(ctx, chatID, repoNotFoundMessage)
	}

	sess.repo = text
	sess.state = stateWaitingForSecret
	return m.sender.SendMessage(ctx, chatID, secretPromptMessage)
}

func (m *Machine) handleSecretInput(ctx context.Context, chatID string, sess *session, text string) error {
	if strings.EqualFold(text, "none") {
		return m.completeWithGeneratedSecret(ctx, chatID, sess)
	}
	return m.completeWithExistingSecret(ctx, chatID, sess, text)
}

func (m *Machine) completeWithGeneratedSecret(ctx context.Context, chatID string, sess *session) error {
	secret, err := newSecret()
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}

	if _, err := m.store.CreateIntegration(ctx, sess.repo, chatID, secret); err != nil {
		m.log.Error("persist integration failed", "chat_id", chatID, "repo", sess.repo, "error", err)
		return m.sender.SendMessage(ctx, chatID, transientErrorMessage)
	}

	if err := m.sender.SendMessage(ctx, chatID, completionMessage(m.publicURL, sess.repo, secret)); err != nil {
		return err
	}

	m.log.Info("integration created", "chat_id", chatID, "repo", sess.repo)
	m.sessions.remove(chatID)
	return m.sender.SendMessage(ctx, chatID, integrationDoneMessage)
}

func (m *Machine) completeWithExistingSecret(ctx context.Context, chatID string, sess *session, secret string) error {
	integration, err := m.store.GetIntegrationByRepoAndSecret(ctx, sess.repo, secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m.sender.SendMessage(ctx, chatID, invalidSecretMessage)
		}
		m.log.Error("secret validation failed", "chat_id", chatID, "repo", sess.repo, "error", err)
		return m.sender.SendMessage(ctx, chatID, transientErrorMessage)
	}

	if err := m.sender.SendMessage(ctx, chatID, secretValidMessage); err != nil {
		return err
	}
	if err := m.sender.SendMessage(ctx, chatID, setupInstructionsMessage(m.publicURL, integration.Secret)); err != nil {
		return err
	}

	m.log.Info("integration re-linked", "chat_id", chatID, "repo", sess.repo)
	m.sessions.remove(chatID)
	return m.sender.SendMessage(ctx, chatID, integrationDoneMessage)
}

func isGreeting(text string) bool {
	for _, greeting := range greetings {
		if strings.EqualFold(text, greeting) {
			return true
		}
	}
	return false
}

// newSecret returns 16 cryptographically random bytes as 32 lowercase hex
// characters. The value doubles as the webhook signing key.
func newSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
