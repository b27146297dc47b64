package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/github"
	"github.com/mvidal/repobot/internal/session"
)

// handleText resolves a free-text message against the user's pending
// operation, falling back to GitHub URL detection.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if pending, ok := b.tracker.Consume(userID); ok {
		// Every kind except a repository search is parked only by
		// admin-gated flows, but re-check in case the admin id changed
		// between prompt and answer.
		if pending.Kind != session.KindRepoSearch && !b.isAdmin(userID) {
			return
		}
		b.continuePending(ctx, chatID, userID, pending, text)
		return
	}

	if owner, repo, ok := github.ParseRepoURL(text); ok && strings.Contains(text, "github.com") {
		b.reply(chatID, fmt.Sprintf("🔗 That looks like *%s/%s*. What should I do with it?", owner, repo),
			urlDetailKeyboard(text))
		return
	}

	if msg.Chat.IsPrivate() {
		b.reply(chatID, "I did not catch that. Try /help, or /search followed by a query.", nil)
	}
}

func (b *Bot) continuePending(ctx context.Context, chatID, userID int64, pending *session.Pending, text string) {
	switch pending.Kind {
	case session.KindRepoSearch:
		b.runSearch(ctx, chatID, userID, text)

	case session.KindRename:
		newPath, err := b.explorer.Rename(pending.Context["path"], text)
		if err != nil {
			b.replyPlain(chatID, "❌ Rename failed: "+err.Error())
			return
		}
		b.replyPlain(chatID, "✅ Renamed to "+newPath)
		b.log.WithField("path", newPath).Info("path renamed")

	case session.KindMkdir:
		if strings.ContainsAny(text, "/\\") {
			b.replyPlain(chatID, "❌ The folder name must not contain path separators.")
			return
		}
		target := filepath.Join(pending.Context["dir"], text)
		if err := b.explorer.CreateDirectory(target); err != nil {
			b.replyPlain(chatID, "❌ Could not create the folder: "+err.Error())
			return
		}
		b.replyPlain(chatID, "✅ Created "+target)

	case session.KindFileSearch:
		cctx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		matches, err := b.explorer.Search(cctx, pending.Context["root"], text, fsx.SearchAll)
		if err != nil {
			b.replyPlain(chatID, "❌ Search failed: "+err.Error())
			return
		}
		b.replyPlain(chatID, formatMatches(text, matches))

	case session.KindCreateRepoName:
		if strings.ContainsAny(text, " /\\") {
			b.tracker.Set(userID, session.KindCreateRepoName, nil)
			b.reply(chatID, "❌ Repository names cannot contain spaces or slashes. Try again.", nil)
			return
		}
		b.tracker.Set(userID, session.KindCreateRepoDesc, map[string]string{"name": text})
		b.reply(chatID, fmt.Sprintf("Name: `%s`\n\nNow send a description, or `skip`.", text), nil)

	case session.KindCreateRepoDesc:
		desc := text
		if strings.EqualFold(desc, "skip") {
			desc = ""
		}
		name := pending.Context["name"]
		b.tracker.Set(userID, session.KindCreateRepoVis, map[string]string{"name": name, "desc": desc})
		b.askVisibility(chatID, name, desc)

	case session.KindForkRepo:
		b.cmdFork(ctx, chatID, []string{text})

	case session.KindDeleteRepo:
		b.cmdDeleteRepo(chatID, []string{text})

	case session.KindCreateBranch:
		fields := strings.Fields(text)
		if len(fields) == 0 {
			b.reply(chatID, "❌ Send at least the new branch name.", nil)
			return
		}
		branch := fields[0]
		from := "main"
		if len(fields) > 1 {
			from = fields[1]
		}
		owner, repo := pending.Context["owner"], pending.Context["repo"]
		cctx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		if err := b.gateway().CreateBranch(cctx, owner, repo, branch, from); err != nil {
			b.reply(chatID, describeError(err), nil)
			return
		}
		b.reply(chatID, fmt.Sprintf("✅ Branch `%s` created from `%s` in *%s/%s*.", branch, from, owner, repo), nil)

	default:
		b.log.WithField("kind", pending.Kind).Warn("unhandled pending kind")
	}
}
