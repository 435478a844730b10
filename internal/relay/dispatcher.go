// Package relay authenticates GitHub webhook deliveries and forwards them
// as rendered Telegram notifications.
package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agomzy/hookrelay/internal/db"
	"github.com/agomzy/hookrelay/internal/event"
	"github.com/agomzy/hookrelay/internal/signature"
)

// PingEvent is the one event delivered without authentication; GitHub sends
// it on webhook creation before the secret round-trips.
const PingEvent = "ping"

// IntegrationLookup resolves repository bindings for inbound deliveries.
type IntegrationLookup interface {
	GetIntegrationByRepo(ctx context.Context, repo string) (db.Integration, error)
	ListIntegrationRepos(ctx context.Context) ([]string, error)
}

// Sender delivers a rendered notification to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Delivery is one inbound webhook request: the event header, the signature
// header (with or without its sha256= prefix), and the raw body bytes. The
// body must be the exact bytes received; the signature covers them verbatim.
type Delivery struct {
	Event     string
	Signature string
	Body      []byte
}

// Dispatcher runs the lookup → verify → classify → render → send pipeline.
type Dispatcher struct {
	store  IntegrationLookup
	sender Sender
	log    *slog.Logger
}

func NewDispatcher(store IntegrationLookup, sender Sender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, log: log}
}

// Dispatch processes one webhook delivery. Failures return *Error with the
// HTTP-equivalent status; ping deliveries succeed without authentication.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) error {
	tag := strings.ToLower(strings.TrimSpace(delivery.Event))

	if !json.Valid(delivery.Body) {
		return invalidPayload(errors.New("body is not valid JSON"))
	}

	if tag == PingEvent {
		d.log.Info("ping received")
		return nil
	}

	repo, err := event.ExtractRepo(delivery.Body)
	if err != nil {
		return invalidPayload(err)
	}
	if repo == "" {
		return missingRepository()
	}

	integration, err := d.store.GetIntegrationByRepo(ctx, repo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d.logUnknownRepository(ctx, repo)
			return unknownRepository(repo)
		}
		return fmt.Errorf("lookup integration for %s: %w", repo, err)
	}

	sig := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(delivery.Signature), "sha256="))
	if err := signature.Verify(delivery.Body, sig, integration.Secret); err != nil {
		if errors.Is(err, signature.ErrMissingCredentials) {
			return missingCredentials()
		}
		return signatureMismatch()
	}

	parsed, err := event.Parse(tag, delivery.Body)
	if err != nil {
		return invalidPayload(err)
	}

	text := event.Render(parsed)
	if err := d.sender.SendMessage(ctx, integration.ChatID, text); err != nil {
		d.log.Error("notification delivery failed", "repo", repo, "event", tag, "chat_id", integration.ChatID, "error", err)
		return deliveryFailure(err)
	}

	d.log.Info("notification sent", "repo", repo, "event", tag, "chat_id", integration.ChatID)
	return nil
}

// logUnknownRepository surfaces the known repository set for diagnostics.
// The list is logged only, never returned to the webhook caller.
func (d *Dispatcher) logUnknownRepository(ctx context.Context, repo string) {
	known, err := d.store.ListIntegrationRepos(ctx)
	if err != nil {
		d.log.Warn("no integration found for repository", "repo", repo, "list_error", err)
		return
	}
	d.log.Warn("no integration found for repository", "repo", repo, "known_repos", known)
}
