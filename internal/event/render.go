package event

import (
	"fmt"
	"strings"
	"unicode"
)

const reviewTimeLayout = "January 02, 2006 at 03:04 PM UTC"

// Render produces the Telegram Markdown message for a parsed event. It is
// total: every field a template interpolates was validated by Parse or has
// a fallback here.
func Render(e Event) string {
	switch e.Kind {
	case KindPush:
		return renderPush(e.Repo, e.Push)
	case KindWorkflowRun:
		return renderWorkflowRun(e.Repo, e.WorkflowRun)
	case KindPullRequest:
		return renderPullRequest(e.Repo, e.PullRequest)
	case KindIssues:
		return renderIssue(e.Repo, e.Issue)
	case KindReview:
		return renderReview(e.Repo, e.Review)
	case KindCreate:
		return fmt.Sprintf(
			"🆕 *New %s Created*\n\n"+
				"*Repository:* `%s`\n"+
				"*Ref Type:* `%s`\n"+
				"*Ref Name:* `%s`\n"+
				"*Created By:* `%s`\n"+
				"[View Repository](https://github.com/%s)",
			capitalize(e.RefChange.RefType), e.Repo, e.RefChange.RefType,
			e.RefChange.Ref, e.RefChange.Sender, e.Repo,
		)
	case KindDelete:
		return fmt.Sprintf(
			"🗑️ *%s Deleted*\n\n"+
				"*Repository:* `%s`\n"+
				"*Ref Type:* `%s`\n"+
				"*Ref Name:* `%s`\n"+
				"*Deleted By:* `%s`\n"+
				"[View Repository](https://github.com/%s)",
			capitalize(e.RefChange.RefType), e.Repo, e.RefChange.RefType,
			e.RefChange.Ref, e.RefChange.Sender, e.Repo,
		)
	case KindIssueComment:
		return fmt.Sprintf(
			"💬 *New Issue Comment*\n\n"+
				"*Repository:* `%s`\n"+
				"*Issue Title:* `%s`\n"+
				"*Commented By:* `%s`\n"+
				"*Comment:* `%s`\n"+
				"[View Comment](%s)",
			e.Repo, e.Comment.IssueTitle, e.Comment.Author, e.Comment.Body,
			e.Comment.HTMLURL,
		)
	default:
		return fmt.Sprintf(
			"🔔 *GitHub Event Received*\n\n"+
				"*Repository:* `%s`\n"+
				"*Event Type:* `%s`\n"+
				"[View Repository](https://github.com/%s)",
			e.Repo, e.Tag, e.Repo,
		)
	}
}

func renderPush(repo string, p *Push) string {
	pusher := p.Pusher
	if pusher == "" {
		pusher = "Unknown"
	}
	return fmt.Sprintf(
		"🔔 *GitHub Push Update*\n\n"+
			"*Repository:* `%s`\n"+
			"*Branch:* `%s`\n"+
			"*Pusher:* `%s`\n"+
			"*Commits:* %d new commit(s)\n"+
			"*Head Commit:* `%s`\n"+
			"*Timestamp:* `%s`\n"+
			"[View Commits](https://github.com/%s/commits/%s)",
		repo, p.Ref, pusher, p.CommitCount, p.HeadMessage, p.HeadTimestamp,
		repo, p.Ref,
	)
}

func renderWorkflowRun(repo string, w *WorkflowRun) string {
	return fmt.Sprintf(
		"🔔 *GitHub Workflow Update*\n\n"+
			"*Repository:* `%s`\n"+
			"*Workflow:* `%s`\n"+
			"*Status:* `%s`\n"+
			"*Triggered by:* `%s`\n"+
			"*Run:* #%d\n"+
			"*Branch:* `%s`\n"+
			"[View Run](https://github.com/%s/actions/runs/%d)",
		repo, w.Workflow, w.Status, w.Actor, w.RunNumber, w.Ref, repo, w.RunID,
	)
}

func renderPullRequest(repo string, p *PullRequest) string {
	if p.MergeClosed() {
		return fmt.Sprintf(
			"🚀 *Pull Request Merged!*\n\n"+
				"*Repository:* `%s`\n"+
				"*PR Title:* `%s`\n"+
				"*Merged by:* `%s`\n"+
				"*Source Branch:* `%s`\n"+
				"*Target Branch:* `%s`\n"+
				"[View Merge](%s)",
			repo, p.Title, p.MergedBy, p.Head, p.Base, p.HTMLURL,
		)
	}
	return fmt.Sprintf(
		"🔔 *GitHub Pull Request %s*\n\n"+
			"*Repository:* `%s`\n"+
			"*PR Title:* `%s`\n"+
			"*Author:* `%s`\n"+
			"*State:* `%s`\n"+
			"*Branch:* `%s` → `%s`\n"+
			"[View Pull Request](%s)",
		capitalize(p.Action), repo, p.Title, p.Author, p.State, p.Head,
		p.Base, p.HTMLURL,
	)
}

func renderIssue(repo string, i *Issue) string {
	return fmt.Sprintf(
		"🔔 *GitHub Issue Update*\n\n"+
			"*Repository:* `%s`\n"+
			"*Issue Title:* `%s`\n"+
			"*Author:* `%s`\n"+
			"*State:* `%s`\n"+
			"[View Issue](%s)",
		repo, i.Title, i.Author, i.State, i.HTMLURL,
	)
}

func renderReview(repo string, r *Review) string {
	body := r.Body
	if strings.TrimSpace(body) == "" {
		body = "No additional comments."
	}
	reviewTime := r.SubmittedAt.UTC().Format(reviewTimeLayout)

	switch r.State {
	case "approved":
		return fmt.Sprintf(
			"✅ *Pull Request Approved!*\n\n"+
				"*Repository:* `%s`\n"+
				"*PR Title:* `%s`\n"+
				"*Approved by:* `%s`\n"+
				"*Branch:* `%s` → `%s`\n"+
				"*Review Time:* `%s`\n"+
				"[View PR](%s)",
			repo, r.PRTitle, r.Reviewer, r.Head, r.Base, reviewTime, r.HTMLURL,
		)
	case "changes_requested":
		return fmt.Sprintf(
			"⚠️ *Changes Requested on Pull Request*\n\n"+
				"*Repository:* `%s`\n"+
				"*PR Title:* `%s`\n"+
				"*Reviewer:* `%s`\n"+
				"*Requested Changes:* `%s`\n"+
				"*Review Time:* `%s`\n"+
				"[View PR](%s)",
			repo, r.PRTitle, r.Reviewer, body, reviewTime, r.HTMLURL,
		)
	default:
		return fmt.Sprintf(
			"💬 *Pull Request Review Submitted*\n\n"+
				"*Repository:* `%s`\n"+
				"*PR Title:* `%s`\n"+
				"*Reviewed by:* `%s`\n"+
				"*Review State:* `%s`\n"+
				"*Comments:* `%s`\n"+
				"*Review Time:* `%s`\n"+
				"[View PR](%s)",
			repo, r.PRTitle, r.Reviewer, r.State, body, reviewTime, r.HTMLURL,
		)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
