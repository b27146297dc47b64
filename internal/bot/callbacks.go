package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/github"
	"github.com/mvidal/repobot/internal/session"
)

// adminOps mirrors adminCommands for button presses. A shared group chat can
// see the buttons; only the admin may press the restricted ones.
var adminOps = map[string]bool{
	"root": true, "fls": true, "finfo": true, "fdel": true, "fdelok": true,
	"fren": true, "fmk": true, "fsr": true, "fsend": true, "fclean": true,
	"github": true, "ghrepos": true, "ghinfo": true, "ghbr": true,
	"ghnbr": true, "ghdel": true, "ghdelok": true, "ghdelask": true,
	"ghvis": true, "ghnew": true, "ghfork": true, "ghtest": true,
	"ghorgs": true, "ghtokenhelp": true,
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	b.cache.Sweep()
	if q.Message == nil {
		b.answer(q.ID, "", false)
		return
	}
	op, args, err := decodePayload(q.Data)
	if err != nil {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	userID := q.From.ID
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	log := b.log.WithFields(logrus.Fields{"op": op, "user": userID})
	log.Debug("callback received")

	if adminOps[op] && !b.isAdmin(userID) {
		log.Warn("refused non-admin callback")
		b.answer(q.ID, "⛔ Administrator only.", true)
		return
	}

	switch op {
	case "help":
		b.answer(q.ID, "", false)
		b.reply(chatID, helpText, nil)
	case "search":
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindRepoSearch, nil)
		b.reply(chatID, "🔍 Send me a search query (at least 2 characters).", nil)
	case "github":
		b.answer(q.ID, "", false)
		b.cmdGitHub(chatID)
	case "root":
		b.answer(q.ID, "", false)
		b.cmdList(chatID, b.cfg.BaseDir, 1)

	case "sel":
		b.cbSelectResult(ctx, q, chatID, messageID, userID, args)
	case "pg":
		b.cbSearchPage(ctx, q, chatID, messageID, userID, args)
	case "bk":
		b.cbBackToResults(q, chatID, messageID, userID, args)
	case "dl":
		if len(args) < 1 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "Starting download...", false)
		b.downloadAndSend(ctx, chatID, args[0])
	case "urlinfo":
		b.cbURLInfo(ctx, q, chatID, args)

	case "fls":
		b.cbListDirectory(q, chatID, messageID, args)
	case "finfo":
		b.cbFileInfo(q, chatID, args)
	case "fdel":
		if len(args) < 1 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "", false)
		b.replyPlainKb(chatID, fmt.Sprintf("⚠️ Delete %s?\nDirectories are removed recursively.", args[0]),
			confirmKeyboard("💀 Yes, delete it", "fdelok", args[0]))
	case "fdelok":
		b.cbDeletePath(q, chatID, messageID, args)
	case "fren":
		if len(args) < 1 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindRename, map[string]string{"path": args[0]})
		b.replyPlain(chatID, "✏️ Send the new name (no path separators).")
	case "fmk":
		if len(args) < 1 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindMkdir, map[string]string{"dir": args[0]})
		b.replyPlain(chatID, "➕ Send the name of the new folder.")
	case "fsr":
		if len(args) < 1 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindFileSearch, map[string]string{"root": args[0]})
		b.replyPlain(chatID, "🔍 Send a name pattern to search for.")
	case "fsend":
		b.cbSendFile(q, chatID, args)
	case "fclean":
		b.cbCleanTemp(q, chatID, messageID)

	case "ghrepos":
		page := 1
		if len(args) > 0 {
			if p, err := strconv.Atoi(args[0]); err == nil && p > 0 {
				page = p
			}
		}
		b.answer(q.ID, "", false)
		b.cmdListRepos(ctx, chatID, page)
	case "ghinfo":
		b.cbOwnRepoInfo(ctx, q, chatID, args)
	case "ghbr":
		b.cbListBranches(ctx, q, chatID, args)
	case "ghnbr":
		if len(args) < 2 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindCreateBranch, map[string]string{"owner": args[0], "repo": args[1]})
		b.reply(chatID, "🌿 Send: `<new-branch> [from-branch]` (default from `main`).", nil)
	case "ghdel":
		if len(args) < 2 {
			b.answer(q.ID, "This button has expired.", true)
			return
		}
		b.answer(q.ID, "", false)
		b.reply(chatID, fmt.Sprintf("⚠️ Permanently delete *%s/%s*?\n\nThis cannot be undone.", args[0], args[1]),
			confirmKeyboard("💀 Yes, delete it", "ghdelok", args[0], args[1]))
	case "ghdelask":
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindDeleteRepo, nil)
		b.reply(chatID, "🗑 Send `owner/repo` of the repository to delete.", nil)
	case "ghdelok":
		b.cbDeleteRepo(ctx, q, chatID, messageID, args)
	case "ghvis":
		b.cbCreateRepo(ctx, q, chatID, messageID, userID, args)
	case "ghnew":
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindCreateRepoName, nil)
		b.reply(chatID, "➕ *New repository*\n\nSend the repository name.", nil)
	case "ghfork":
		b.answer(q.ID, "", false)
		b.tracker.Set(userID, session.KindForkRepo, nil)
		b.reply(chatID, "🍴 Send `owner/repo` of the repository to fork.", nil)
	case "ghtest":
		b.cbTestConnection(ctx, q, chatID)
	case "ghorgs":
		b.cbListOrgs(ctx, q, chatID)
	case "ghtokenhelp":
		b.answer(q.ID, "", false)
		b.reply(chatID, "🔑 Create a personal access token at github.com/settings/tokens with the `repo`, `delete_repo` and `gist` scopes, then send:\n`/ghtoken <token>`", nil)

	case "cancel":
		b.tracker.Cancel(userID)
		b.answer(q.ID, "Cancelled.", false)
		b.edit(chatID, messageID, "❌ Cancelled.", nil)
	default:
		b.answer(q.ID, "This button has expired.", true)
	}
}

func (b *Bot) cbSelectResult(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, messageID int, userID int64, args []string) {
	if len(args) < 2 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	entry, err := b.cache.Get(args[0], userID)
	if err != nil {
		b.answerSessionErr(q.ID, err)
		return
	}
	idx, convErr := strconv.Atoi(args[1])
	if convErr != nil || idx < 0 || idx >= len(entry.Results.Repos) {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	b.answer(q.ID, "", false)
	picked := entry.Results.Repos[idx]
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	detail, err := b.gateway().GetRepo(cctx, picked.Owner, picked.Name)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.edit(chatID, messageID, formatRepoDetail(detail), repoDetailKeyboard(entry.ID, detail))
}

func (b *Bot) cbSearchPage(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, messageID int, userID int64, args []string) {
	if len(args) < 2 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	entry, err := b.cache.Get(args[0], userID)
	if err != nil {
		b.answerSessionErr(q.ID, err)
		return
	}
	page, convErr := strconv.Atoi(args[1])
	if convErr != nil || page < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	b.answer(q.ID, "", false)
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	res, err := b.gateway().SearchRepos(cctx, entry.Query, page)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.cache.UpdatePage(entry.ID, page, res)
	b.edit(chatID, messageID, formatSearchResults(res), searchKeyboard(entry.ID, res))
}

func (b *Bot) cbBackToResults(q *tgbotapi.CallbackQuery, chatID int64, messageID int, userID int64, args []string) {
	if len(args) < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	entry, err := b.cache.Get(args[0], userID)
	if err != nil {
		b.answerSessionErr(q.ID, err)
		return
	}
	b.answer(q.ID, "", false)
	b.edit(chatID, messageID, formatSearchResults(entry.Results), searchKeyboard(entry.ID, entry.Results))
}

// answerSessionErr distinguishes an expired session from someone pressing
// another user's buttons.
func (b *Bot) answerSessionErr(queryID string, err error) {
	if errors.Is(err, session.ErrForbidden) {
		b.answer(queryID, "⛔ This search belongs to another user.", true)
		return
	}
	b.answer(queryID, "⌛ This search has expired. Run /search again.", true)
}

func (b *Bot) cbURLInfo(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, args []string) {
	if len(args) < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	owner, repo, ok := github.ParseRepoURL(args[0])
	if !ok {
		b.answer(q.ID, "Not a repository URL.", true)
		return
	}
	b.answer(q.ID, "", false)
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	detail, err := b.gateway().GetRepo(cctx, owner, repo)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, formatRepoDetail(detail), urlDetailKeyboard(detail.URL))
}

func (b *Bot) cbListDirectory(q *tgbotapi.CallbackQuery, chatID int64, messageID int, args []string) {
	if len(args) < 2 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	page, convErr := strconv.Atoi(args[1])
	if convErr != nil || page < 1 {
		page = 1
	}
	listing, err := b.explorer.ListDirectory(args[0], page, fsx.ListPerPage)
	if err != nil {
		if errors.Is(err, fsx.ErrNotAllowed) {
			b.answer(q.ID, "⛔ Outside the managed area.", true)
			return
		}
		b.answer(q.ID, err.Error(), true)
		return
	}
	b.answer(q.ID, "", false)
	b.editPlain(chatID, messageID, formatListing(listing), listingKeyboard(listing))
}

// editPlain edits without Markdown parsing; used for listings whose entries
// are arbitrary filenames.
func (b *Bot) editPlain(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, truncate(text))
	if kb != nil {
		edit.ReplyMarkup = kb
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.WithError(err).Warn("editing message")
	}
}

func (b *Bot) cbFileInfo(q *tgbotapi.CallbackQuery, chatID int64, args []string) {
	if len(args) < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	entry, err := b.explorer.FileInfo(args[0])
	if err != nil {
		b.answer(q.ID, err.Error(), true)
		return
	}
	b.answer(q.ID, "", false)
	b.replyPlainKb(chatID, formatFileInfo(entry), fileActionsKeyboard(entry))
}

func (b *Bot) cbDeletePath(q *tgbotapi.CallbackQuery, chatID int64, messageID int, args []string) {
	if len(args) < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	if err := b.explorer.DeletePath(args[0]); err != nil {
		b.answer(q.ID, err.Error(), true)
		return
	}
	b.answer(q.ID, "Deleted.", false)
	b.editPlain(chatID, messageID, "🗑 Deleted "+args[0], nil)
	b.log.WithField("path", args[0]).Info("path deleted")
}

func (b *Bot) cbSendFile(q *tgbotapi.CallbackQuery, chatID int64, args []string) {
	if len(args) < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	entry, err := b.explorer.FileInfo(args[0])
	if err != nil {
		b.answer(q.ID, err.Error(), true)
		return
	}
	if !entry.IsFile {
		b.answer(q.ID, "Not a regular file.", true)
		return
	}
	if entry.Size > github.MaxArchiveSize {
		b.answer(q.ID, "File exceeds the 50MB upload limit.", true)
		return
	}
	b.answer(q.ID, "Uploading...", false)
	data, err := os.ReadFile(entry.AbsolutePath)
	if err != nil {
		b.replyPlain(chatID, "❌ Could not read the file: "+err.Error())
		return
	}
	if err := b.sendDocument(chatID, entry.Name, data, "📄 `"+entry.Name+"`"); err != nil {
		b.log.WithError(err).Error("uploading file")
		b.replyPlain(chatID, "❌ Upload to Telegram failed.")
	}
}

func (b *Bot) cbCleanTemp(q *tgbotapi.CallbackQuery, chatID int64, messageID int) {
	files, bytes, err := b.explorer.CleanTemp()
	if err != nil {
		b.answer(q.ID, err.Error(), true)
		return
	}
	b.answer(q.ID, "Cleaned.", false)
	b.edit(chatID, messageID, fmt.Sprintf("✅ Temp area cleaned: %d files, %s freed.", files, humanize.Bytes(uint64(bytes))), nil)
	b.log.WithFields(logrus.Fields{"files": files, "bytes": bytes}).Info("temp area cleaned")
}

func (b *Bot) cbOwnRepoInfo(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, args []string) {
	if len(args) < 2 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	b.answer(q.ID, "", false)
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	detail, err := b.gateway().GetRepo(cctx, args[0], args[1])
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, formatRepoDetail(detail), ownRepoKeyboard(args[0], args[1]))
}

func (b *Bot) cbListBranches(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, args []string) {
	if len(args) < 2 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	b.answer(q.ID, "", false)
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	branches, err := b.gateway().ListBranches(cctx, args[0], args[1])
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, formatBranches(args[0], args[1], branches), nil)
}

func (b *Bot) cbDeleteRepo(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, messageID int, args []string) {
	if len(args) < 2 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	if err := b.gateway().DeleteRepo(cctx, args[0], args[1]); err != nil {
		b.answer(q.ID, "", false)
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.answer(q.ID, "Deleted.", false)
	b.edit(chatID, messageID, fmt.Sprintf("💀 Repository *%s/%s* deleted.", args[0], args[1]), nil)
	b.log.WithFields(logrus.Fields{"owner": args[0], "repo": args[1]}).Info("repository deleted")
}

// cbCreateRepo finishes the create wizard. Name and description come from the
// pending operation, not the button payload.
func (b *Bot) cbCreateRepo(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, messageID int, userID int64, args []string) {
	if len(args) < 1 {
		b.answer(q.ID, "This button has expired.", true)
		return
	}
	pending, ok := b.tracker.Consume(userID)
	if !ok || pending.Kind != session.KindCreateRepoVis {
		b.answer(q.ID, "⌛ This dialog has expired. Run /ghcreate again.", true)
		return
	}
	name := pending.Context["name"]
	desc := pending.Context["desc"]
	private := args[0] == "private"
	b.answer(q.ID, "Creating...", false)
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	url, err := b.gateway().CreateRepo(cctx, name, desc, private, true)
	if err != nil {
		b.edit(chatID, messageID, describeError(err), nil)
		return
	}
	visibility := "public"
	if private {
		visibility = "private"
	}
	b.edit(chatID, messageID, fmt.Sprintf("✅ Created %s repository *%s*:\n%s", visibility, name, url), nil)
	b.log.WithFields(logrus.Fields{"name": name, "private": private}).Info("repository created")
}

func (b *Bot) cbTestConnection(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64) {
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	login, err := b.gateway().TestConnection(cctx)
	if err != nil {
		b.answer(q.ID, "", false)
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.answer(q.ID, "", false)
	b.reply(chatID, fmt.Sprintf("✅ Connected to GitHub as *%s*.", login), nil)
}

func (b *Bot) cbListOrgs(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64) {
	b.answer(q.ID, "", false)
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	orgs, err := b.gateway().ListOrgs(cctx)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, formatOrgs(orgs), nil)
}
