// Package event classifies GitHub webhook payloads and renders them as
// Telegram-ready Markdown messages.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the recognized event families. Anything else falls back
// to KindUnknown and a generic notification.
type Kind string

const (
	KindPing         Kind = "ping"
	KindPush         Kind = "push"
	KindWorkflowRun  Kind = "workflow_run"
	KindPullRequest  Kind = "pull_request"
	KindIssues       Kind = "issues"
	KindReview       Kind = "pull_request_review"
	KindCreate       Kind = "create"
	KindDelete       Kind = "delete"
	KindIssueComment Kind = "issue_comment"
	KindUnknown      Kind = ""
)

// MalformedPayloadError reports a payload that carried the right event tag
// but is missing a field its notification template needs.
type MalformedPayloadError struct {
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: missing or invalid %s", e.Field)
}

func malformed(field string) error {
	return &MalformedPayloadError{Field: field}
}

// Event is the parsed form of one webhook delivery. Exactly one of the
// variant pointers is set, matching Kind; KindUnknown carries only Repo
// and Tag.
type Event struct {
	Kind Kind
	// Tag is the raw lowercased event name, kept for the fallback message.
	Tag  string
	Repo string

	Push        *Push
	WorkflowRun *WorkflowRun
	PullRequest *PullRequest
	Issue       *Issue
	Review      *Review
	RefChange   *RefChange
	Comment     *IssueComment
}

type Push struct {
	Ref           string
	Pusher        string // empty when absent; rendered as "Unknown"
	CommitCount   int
	HeadMessage   string
	HeadTimestamp string
}

type WorkflowRun struct {
	Workflow  string
	Status    string
	Actor     string
	Ref       string
	RunID     int64
	RunNumber int64
}

type PullRequest struct {
	Action   string
	Title    string
	State    string
	Merged   bool
	MergedBy string
	Author   string
	Head     string
	Base     string
	HTMLURL  string
}

// MergeClosed reports whether this delivery announces a merged pull request.
func (p *PullRequest) MergeClosed() bool {
	return p.Action == "closed" && p.Merged
}

type Issue struct {
	Title   string
	Author  string
	State   string
	HTMLURL string
}

type Review struct {
	PRTitle     string
	Head        string
	Base        string
	HTMLURL     string
	State       string
	Reviewer    string
	Body        string // empty when absent; rendered with a placeholder
	SubmittedAt time.Time
}

type RefChange struct {
	RefType string
	Ref     string
	Sender  string
}

type IssueComment struct {
	IssueTitle string
	Author     string
	Body       string
	HTMLURL    string
}

type user struct {
	Login string `json:"login"`
}

type envelope struct {
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// ExtractRepo pulls the repository identifier out of a raw payload without
// validating the rest of its shape. Returns an empty string when absent.
func ExtractRepo(payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", err
	}
	return strings.TrimSpace(env.Repository.FullName), nil
}

// Parse decodes a webhook payload into the variant matching tag. The tag is
// lowercased before dispatch; unrecognized tags produce a KindUnknown event
// so the caller can still announce that something happened.
func Parse(tag string, payload []byte) (Event, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))

	repo, err := ExtractRepo(payload)
	if err != nil {
		return Event{}, fmt.Errorf("decode payload: %w", err)
	}
	if repo == "" && tag != string(KindPing) {
		return Event{}, malformed("repository.full_name")
	}

	switch Kind(tag) {
	case KindPing:
		return Event{Kind: KindPing, Tag: tag, Repo: repo}, nil
	case KindPush:
		return parsePush(tag, repo, payload)
	case KindWorkflowRun:
		return parseWorkflowRun(tag, repo, payload)
	case KindPullRequest:
		return parsePullRequest(tag, repo, payload)
	case KindIssues:
		return parseIssues(tag, repo, payload)
	case KindReview:
		return parseReview(tag, repo, payload)
	case KindCreate, KindDelete:
		return parseRefChange(tag, repo, payload)
	case KindIssueComment:
		return parseIssueComment(tag, repo, payload)
	default:
		return Event{Kind: KindUnknown, Tag: tag, Repo: repo}, nil
	}
}

func parsePush(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		Ref    string `json:"ref"`
		Pusher *struct {
			Name string `json:"name"`
		} `json:"pusher"`
		Commits    *[]json.RawMessage `json:"commits"`
		HeadCommit *struct {
			Message   string `json:"message"`
			Timestamp string `json:"timestamp"`
		} `json:"head_commit"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode push payload: %w", err)
	}
	if strings.TrimSpace(body.Ref) == "" {
		return Event{}, malformed("ref")
	}
	if body.Commits == nil {
		return Event{}, malformed("commits")
	}
	if body.HeadCommit == nil {
		return Event{}, malformed("head_commit")
	}

	push := &Push{
		Ref:           body.Ref,
		CommitCount:   len(*body.Commits),
		HeadMessage:   body.HeadCommit.Message,
		HeadTimestamp: body.HeadCommit.Timestamp,
	}
	if body.Pusher != nil {
		push.Pusher = strings.TrimSpace(body.Pusher.Name)
	}
	return Event{Kind: KindPush, Tag: tag, Repo: repo, Push: push}, nil
}

func parseWorkflowRun(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		Workflow  string `json:"workflow"`
		Status    string `json:"status"`
		Actor     *user  `json:"actor"`
		Ref       string `json:"ref"`
		RunID     int64  `json:"run_id"`
		RunNumber int64  `json:"run_number"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode workflow_run payload: %w", err)
	}
	if strings.TrimSpace(body.Workflow) == "" {
		return Event{}, malformed("workflow")
	}
	if strings.TrimSpace(body.Status) == "" {
		return Event{}, malformed("status")
	}
	if body.Actor == nil || strings.TrimSpace(body.Actor.Login) == "" {
		return Event{}, malformed("actor")
	}
	if strings.TrimSpace(body.Ref) == "" {
		return Event{}, malformed("ref")
	}
	if body.RunID <= 0 {
		return Event{}, malformed("run_id")
	}

	return Event{Kind: KindWorkflowRun, Tag: tag, Repo: repo, WorkflowRun: &WorkflowRun{
		Workflow:  body.Workflow,
		Status:    body.Status,
		Actor:     body.Actor.Login,
		Ref:       body.Ref,
		RunID:     body.RunID,
		RunNumber: body.RunNumber,
	}}, nil
}

func parsePullRequest(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		Action      string `json:"action"`
		PullRequest *struct {
			Title    string `json:"title"`
			State    string `json:"state"`
			Merged   bool   `json:"merged"`
			MergedBy *user  `json:"merged_by"`
			User     *user  `json:"user"`
			Head     *struct {
				Ref string `json:"ref"`
			} `json:"head"`
			Base *struct {
				Ref string `json:"ref"`
			} `json:"base"`
			HTMLURL string `json:"html_url"`
		} `json:"pull_request"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode pull_request payload: %w", err)
	}
	if strings.TrimSpace(body.Action) == "" {
		return Event{}, malformed("action")
	}
	pr := body.PullRequest
	if pr == nil {
		return Event{}, malformed("pull_request")
	}
	if strings.TrimSpace(pr.Title) == "" {
		return Event{}, malformed("pull_request.title")
	}
	if strings.TrimSpace(pr.State) == "" {
		return Event{}, malformed("pull_request.state")
	}
	if pr.Head == nil || strings.TrimSpace(pr.Head.Ref) == "" {
		return Event{}, malformed("pull_request.head.ref")
	}
	if pr.Base == nil || strings.TrimSpace(pr.Base.Ref) == "" {
		return Event{}, malformed("pull_request.base.ref")
	}
	if strings.TrimSpace(pr.HTMLURL) == "" {
		return Event{}, malformed("pull_request.html_url")
	}

	parsed := &PullRequest{
		Action:  strings.ToLower(strings.TrimSpace(body.Action)),
		Title:   pr.Title,
		State:   pr.State,
		Merged:  pr.Merged,
		Head:    pr.Head.Ref,
		Base:    pr.Base.Ref,
		HTMLURL: pr.HTMLURL,
	}
	if pr.MergedBy != nil {
		parsed.MergedBy = pr.MergedBy.Login
	}
	if pr.User != nil {
		parsed.Author = pr.User.Login
	}

	// The merge announcement names the merger; every other variant names
	// the author. Only the field the selected template uses is required.
	if parsed.MergeClosed() {
		if parsed.MergedBy == "" {
			return Event{}, malformed("pull_request.merged_by")
		}
	} else if parsed.Author == "" {
		return Event{}, malformed("pull_request.user")
	}

	return Event{Kind: KindPullRequest, Tag: tag, Repo: repo, PullRequest: parsed}, nil
}

func parseIssues(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		Issue *struct {
			Title   string `json:"title"`
			State   string `json:"state"`
			User    *user  `json:"user"`
			HTMLURL string `json:"html_url"`
		} `json:"issue"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode issues payload: %w", err)
	}
	if body.Issue == nil {
		return Event{}, malformed("issue")
	}
	if strings.TrimSpace(body.Issue.Title) == "" {
		return Event{}, malformed("issue.title")
	}
	if strings.TrimSpace(body.Issue.State) == "" {
		return Event{}, malformed("issue.state")
	}
	if body.Issue.User == nil || strings.TrimSpace(body.Issue.User.Login) == "" {
		return Event{}, malformed("issue.user")
	}
	if strings.TrimSpace(body.Issue.HTMLURL) == "" {
		return Event{}, malformed("issue.html_url")
	}

	return Event{Kind: KindIssues, Tag: tag, Repo: repo, Issue: &Issue{
		Title:   body.Issue.Title,
		Author:  body.Issue.User.Login,
		State:   body.Issue.State,
		HTMLURL: body.Issue.HTMLURL,
	}}, nil
}

func parseReview(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		PullRequest *struct {
			Title string `json:"title"`
			Head  *struct {
				Ref string `json:"ref"`
			} `json:"head"`
			Base *struct {
				Ref string `json:"ref"`
			} `json:"base"`
			HTMLURL string `json:"html_url"`
		} `json:"pull_request"`
		Review *struct {
			State       string `json:"state"`
			User        *user  `json:"user"`
			Body        string `json:"body"`
			SubmittedAt string `json:"submitted_at"`
		} `json:"review"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode pull_request_review payload: %w", err)
	}
	pr := body.PullRequest
	if pr == nil {
		return Event{}, malformed("pull_request")
	}
	if strings.TrimSpace(pr.Title) == "" {
		return Event{}, malformed("pull_request.title")
	}
	if pr.Head == nil || pr.Base == nil {
		return Event{}, malformed("pull_request.head/base")
	}
	if strings.TrimSpace(pr.HTMLURL) == "" {
		return Event{}, malformed("pull_request.html_url")
	}
	review := body.Review
	if review == nil {
		return Event{}, malformed("review")
	}
	if strings.TrimSpace(review.State) == "" {
		return Event{}, malformed("review.state")
	}
	if review.User == nil || strings.TrimSpace(review.User.Login) == "" {
		return Event{}, malformed("review.user")
	}

	// The review timestamp is rendered in human-readable form, so a value
	// that does not parse is a hard error rather than a passthrough.
	submittedAt, err := time.Parse("2006-01-02T15:04:05Z", strings.TrimSpace(review.SubmittedAt))
	if err != nil {
		return Event{}, malformed("review.submitted_at")
	}

	return Event{Kind: KindReview, Tag: tag, Repo: repo, Review: &Review{
		PRTitle:     pr.Title,
		Head:        pr.Head.Ref,
		Base:        pr.Base.Ref,
		HTMLURL:     pr.HTMLURL,
		State:       strings.ToLower(strings.TrimSpace(review.State)),
		Reviewer:    review.User.Login,
		Body:        review.Body,
		SubmittedAt: submittedAt,
	}}, nil
}

func parseRefChange(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		RefType string `json:"ref_type"`
		Ref     string `json:"ref"`
		Sender  *user  `json:"sender"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", tag, err)
	}
	if strings.TrimSpace(body.RefType) == "" {
		return Event{}, malformed("ref_type")
	}
	if strings.TrimSpace(body.Ref) == "" {
		return Event{}, malformed("ref")
	}
	if body.Sender == nil || strings.TrimSpace(body.Sender.Login) == "" {
		return Event{}, malformed("sender")
	}

	return Event{Kind: Kind(tag), Tag: tag, Repo: repo, RefChange: &RefChange{
		RefType: body.RefType,
		Ref:     body.Ref,
		Sender:  body.Sender.Login,
	}}, nil
}

func parseIssueComment(tag, repo string, payload []byte) (Event, error) {
	var body struct {
		Issue *struct {
			Title string `json:"title"`
		} `json:"issue"`
		Comment *struct {
			User    *user  `json:"user"`
			Body    string `json:"body"`
			HTMLURL string `json:"html_url"`
		} `json:"comment"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode issue_comment payload: %w", err)
	}
	if body.Issue == nil || strings.TrimSpace(body.Issue.Title) == "" {
		return Event{}, malformed("issue.title")
	}
	comment := body.Comment
	if comment == nil {
		return Event{}, malformed("comment")
	}
	if comment.User == nil || strings.TrimSpace(comment.User.Login) == "" {
		return Event{}, malformed("comment.user")
	}
	if strings.TrimSpace(comment.Body) == "" {
		return Event{}, malformed("comment.body")
	}
	if strings.TrimSpace(comment.HTMLURL) == "" {
		return Event{}, malformed("comment.html_url")
	}

	return Event{Kind: KindIssueComment, Tag: tag, Repo: repo, Comment: &IssueComment{
		IssueTitle: body.Issue.Title,
		Author:     comment.User.Login,
		Body:       comment.Body,
		HTMLURL:    comment.HTMLURL,
	}}, nil
}
