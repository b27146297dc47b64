package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/github"
	"github.com/mvidal/repobot/internal/session"
)

// apiTimeout bounds a single GitHub API call made from a handler.
const apiTimeout = 30 * time.Second

const helpText = `🤖 *Repository bot*

*Browsing*
/search <query> - search GitHub repositories
/download <url> - fetch a repository as a ZIP
/info - about this bot
/example - usage examples

*GitHub account* (admin)
/github - account menu
/ghrepos - list your repositories
/ghcreate [name ["description"]] - create a repository
/ghfork <owner/repo> - fork a repository
/ghdelete <owner/repo> - delete a repository
/ghfile <owner/repo> <path> "content" ["message"] - create or update a file
/ghissue <owner/repo> "title" ["body"] ["label,label"] - open an issue
/ghgist <filename> "content" ["description"] [public] - create a gist
/ghtoken <token> - replace the GitHub token

*Files* (admin)
/root - browse the managed directory
/ls [path] - list a directory
/find <pattern> [files|dirs] - search by name
/tree [path] - directory tree
/disk - disk usage
/clean - empty the temp download area
/stats - bot statistics`

// adminCommands require the configured admin account; everyone else gets a
// refusal instead of silence so misconfigured ids are easy to spot.
var adminCommands = map[string]bool{
	"root": true, "ls": true, "disk": true, "clean": true, "find": true,
	"tree": true, "stats": true, "github": true, "ghrepos": true,
	"ghcreate": true, "ghfork": true, "ghdelete": true, "ghfile": true,
	"ghissue": true, "ghgist": true, "ghtoken": true,
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	userID := msg.From.ID
	chatID := msg.Chat.ID

	log := b.log.WithFields(logrus.Fields{"command": cmd, "user": userID})
	log.Info("command received")

	if adminCommands[cmd] && !b.isAdmin(userID) {
		log.Warn("refused non-admin command")
		b.reply(chatID, "⛔ This command is restricted to the bot administrator.", nil)
		return
	}

	args, err := splitArgs(msg.CommandArguments())
	if err != nil {
		b.reply(chatID, "❌ Unbalanced quotes in arguments. Close every `\"` you open.", nil)
		return
	}

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.reply(chatID, helpText, nil)
	case "search":
		b.cmdSearch(ctx, chatID, userID, strings.Join(args, " "))
	case "download":
		b.cmdDownload(ctx, chatID, args)
	case "example":
		b.cmdExample(chatID)
	case "info":
		b.cmdInfo(chatID)
	case "root":
		b.cmdList(chatID, b.cfg.BaseDir, 1)
	case "ls":
		path := b.cfg.BaseDir
		if len(args) > 0 {
			path = args[0]
		}
		b.cmdList(chatID, path, 1)
	case "disk":
		b.cmdDisk(chatID)
	case "clean":
		b.cmdClean(chatID)
	case "find":
		b.cmdFind(ctx, chatID, args)
	case "tree":
		path := b.cfg.BaseDir
		if len(args) > 0 {
			path = args[0]
		}
		b.cmdTree(ctx, chatID, path)
	case "stats":
		b.cmdStats(chatID)
	case "github":
		b.cmdGitHub(chatID)
	case "ghrepos":
		b.cmdListRepos(ctx, chatID, 1)
	case "ghcreate":
		b.cmdCreateRepo(chatID, userID, args)
	case "ghfork":
		b.cmdFork(ctx, chatID, args)
	case "ghdelete":
		b.cmdDeleteRepo(chatID, args)
	case "ghfile":
		b.cmdCreateFile(ctx, chatID, args)
	case "ghissue":
		b.cmdCreateIssue(ctx, chatID, args)
	case "ghgist":
		b.cmdCreateGist(ctx, chatID, args)
	case "ghtoken":
		b.cmdSetToken(ctx, msg, args)
	default:
		b.reply(chatID, "Unknown command. Try /help.", nil)
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := msg.From.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi %s!\n\nI browse and download GitHub repositories, and manage this server's file area for my administrator.\n\nTry /search or pick an option below.", name)
	b.reply(msg.Chat.ID, text, mainMenuKeyboard())
}

func (b *Bot) cmdExample(chatID int64) {
	b.reply(chatID, "*Examples*\n\n"+
		"`/search telegram bot` - find repositories\n"+
		"`/info golang/go` - show repository details\n"+
		"`/download https://github.com/golang/go` - fetch a ZIP\n"+
		"`/ghcreate my-tool \"A small utility\"` - create a repository\n"+
		"`/ghfile me/my-tool README.md \"# My tool\"` - add a file", nil)
}

func (b *Bot) cmdSearch(ctx context.Context, chatID, userID int64, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		b.tracker.Set(userID, session.KindRepoSearch, nil)
		b.reply(chatID, "🔍 Send me a search query (at least 2 characters).", nil)
		return
	}
	b.runSearch(ctx, chatID, userID, query)
}

// runSearch executes a first-page search and caches it for pagination.
func (b *Bot) runSearch(ctx context.Context, chatID, userID int64, query string) {
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	res, err := b.gateway().SearchRepos(cctx, query, 1)
	if err != nil {
		if errors.Is(err, github.ErrQueryTooShort) {
			b.reply(chatID, "❌ The query must be at least 2 characters.", nil)
			return
		}
		b.reply(chatID, describeError(err), nil)
		return
	}
	if len(res.Repos) == 0 {
		b.reply(chatID, fmt.Sprintf("🔍 No repositories match `%s`.", query), nil)
		return
	}
	id := b.cache.Put(query, 1, res, userID)
	b.reply(chatID, formatSearchResults(res), searchKeyboard(id, res))
}

func (b *Bot) cmdDownload(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(chatID, "Usage: `/download <github repository url>`", nil)
		return
	}
	b.downloadAndSend(ctx, chatID, args[0])
}

// downloadAndSend fetches the archive and delivers it as a document, editing a
// progress message along the way.
func (b *Bot) downloadAndSend(ctx context.Context, chatID int64, repoURL string) {
	update := b.progress(chatID, "⏳ Downloading archive...")
	data, filename, err := b.dl.Download(ctx, repoURL)
	if err != nil {
		update(describeError(err), nil)
		return
	}
	update(fmt.Sprintf("📦 Got `%s`, uploading...", filename), nil)
	caption := fmt.Sprintf("📦 `%s`\n🔗 %s", filename, repoURL)
	if err := b.sendDocument(chatID, filename, data, caption); err != nil {
		b.log.WithError(err).Error("uploading archive")
		update("❌ Upload to Telegram failed. The archive may exceed the upload limit.", nil)
		return
	}
	update(fmt.Sprintf("✅ Sent `%s`.", filename), nil)
}

func (b *Bot) cmdInfo(chatID int64) {
	var b2 strings.Builder
	b2.WriteString("🤖 *Repository bot*\n\n")
	if b.username != "" {
		fmt.Fprintf(&b2, "Username: @%s\n", b.username)
	}
	b2.WriteString("\n*What I can do*\n")
	b2.WriteString("• 🔍 Search public repositories\n")
	b2.WriteString("• 📥 Download repositories as ZIP archives\n")
	b2.WriteString("• 🚀 Manage the admin's GitHub account: repos, forks, branches, files, issues, gists, orgs\n")
	b2.WriteString("• 🗂 Manage the server's file area (admin only)\n")
	b2.WriteString("• 📊 Disk and usage statistics\n\n")
	b2.WriteString("Start with /search, /github or /help.")
	b.reply(chatID, b2.String(), mainMenuKeyboard())
}

func (b *Bot) cmdList(chatID int64, path string, page int) {
	listing, err := b.explorer.ListDirectory(path, page, fsx.ListPerPage)
	if err != nil {
		if errors.Is(err, fsx.ErrNotAllowed) {
			b.replyPlain(chatID, "⛔ That path is outside the managed area.")
			return
		}
		b.replyPlain(chatID, "❌ "+err.Error())
		return
	}
	b.replyPlainKb(chatID, formatListing(listing), listingKeyboard(listing))
}

// replyPlainKb sends without Markdown but with a keyboard; listing output
// contains arbitrary filenames that would break Markdown parsing.
func (b *Bot) replyPlainKb(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Warn("sending message")
	}
}

func (b *Bot) cmdDisk(chatID int64) {
	du, err := b.explorer.DiskUsage()
	if err != nil {
		b.reply(chatID, "❌ Could not read disk usage: "+err.Error(), nil)
		return
	}
	b.reply(chatID, formatDiskUsage(du), nil)
}

func (b *Bot) cmdClean(chatID int64) {
	b.reply(chatID, "🗑 Remove *everything* in the temp download area?", confirmKeyboard("✅ Yes, clean it", "fclean"))
}

func (b *Bot) cmdFind(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(chatID, "Usage: `/find <pattern> [files|dirs]`", nil)
		return
	}
	st := fsx.SearchAll
	if len(args) > 1 {
		switch args[1] {
		case "files":
			st = fsx.SearchFiles
		case "dirs":
			st = fsx.SearchDirs
		}
	}
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	matches, err := b.explorer.Search(cctx, b.cfg.BaseDir, args[0], st)
	if err != nil {
		b.replyPlain(chatID, "❌ Search failed: "+err.Error())
		return
	}
	b.replyPlain(chatID, formatMatches(args[0], matches))
}

func (b *Bot) cmdTree(ctx context.Context, chatID int64, path string) {
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	tree, err := b.explorer.Tree(cctx, path)
	if err != nil {
		b.replyPlain(chatID, "⛔ Cannot render a tree there.")
		return
	}
	b.replyPlain(chatID, "🌲 "+path+"\n\n"+tree)
}

func (b *Bot) cmdStats(chatID int64) {
	du, err := b.explorer.DiskUsage()
	if err != nil {
		b.log.WithError(err).Warn("reading disk usage for stats")
		du = nil
	}
	b.reply(chatID, formatStats(du, b.cache.Len(), b.tracker.Len()), nil)
}

func (b *Bot) cmdGitHub(chatID int64) {
	gw := b.gateway()
	if !gw.HasToken() {
		b.reply(chatID, "🐙 No GitHub token is configured. Search still works; account management needs a token via /ghtoken or the GITHUB_TOKEN variable.", githubMenuKeyboard(false))
		return
	}
	b.reply(chatID, "🐙 *GitHub account*\n\nPick an action:", githubMenuKeyboard(true))
}

func (b *Bot) cmdListRepos(ctx context.Context, chatID int64, page int) {
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	repos, err := b.gateway().ListRepos(cctx, page, 10)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	if len(repos.Repos) == 0 {
		b.reply(chatID, "You have no repositories on this page.", nil)
		return
	}
	b.reply(chatID, formatRepoPage(repos), repoListKeyboard(repos))
}

// cmdCreateRepo starts the wizard, or jumps straight to the visibility choice
// when name (and optionally description) arrive as arguments.
func (b *Bot) cmdCreateRepo(chatID, userID int64, args []string) {
	switch len(args) {
	case 0:
		b.tracker.Set(userID, session.KindCreateRepoName, nil)
		b.reply(chatID, "➕ *New repository*\n\nSend the repository name.", nil)
	case 1:
		b.tracker.Set(userID, session.KindCreateRepoDesc, map[string]string{"name": args[0]})
		b.reply(chatID, fmt.Sprintf("Name: `%s`\n\nNow send a description, or `skip`.", args[0]), nil)
	default:
		b.tracker.Set(userID, session.KindCreateRepoVis, map[string]string{
			"name": args[0], "desc": args[1],
		})
		b.askVisibility(chatID, args[0], args[1])
	}
}

func (b *Bot) askVisibility(chatID int64, name, desc string) {
	text := fmt.Sprintf("Name: `%s`\nDescription: %s\n\nShould it be public or private?", name, descOrNone(desc))
	b.reply(chatID, text, visibilityKeyboard())
}

func descOrNone(desc string) string {
	if desc == "" {
		return "_none_"
	}
	return desc
}

func (b *Bot) cmdFork(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(chatID, "Usage: `/ghfork <owner/repo>`", nil)
		return
	}
	owner, repo, ok := splitOwnerRepo(args[0])
	if !ok {
		b.reply(chatID, "❌ Expected `owner/repo`.", nil)
		return
	}
	update := b.progress(chatID, fmt.Sprintf("🍴 Forking `%s/%s`...", owner, repo))
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	url, err := b.gateway().ForkRepo(cctx, owner, repo)
	if err != nil {
		update(describeError(err), nil)
		return
	}
	update(fmt.Sprintf("✅ Fork started. It will appear shortly at:\n%s", url), nil)
}

func (b *Bot) cmdDeleteRepo(chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(chatID, "Usage: `/ghdelete <owner/repo>`", nil)
		return
	}
	owner, repo, ok := splitOwnerRepo(args[0])
	if !ok {
		b.reply(chatID, "❌ Expected `owner/repo`.", nil)
		return
	}
	text := fmt.Sprintf("⚠️ Permanently delete *%s/%s*?\n\nThis cannot be undone.", owner, repo)
	b.reply(chatID, text, confirmKeyboard("💀 Yes, delete it", "ghdelok", owner, repo))
}

func (b *Bot) cmdCreateFile(ctx context.Context, chatID int64, args []string) {
	if len(args) < 3 {
		b.reply(chatID, "Usage: `/ghfile <owner/repo> <path> \"content\" [\"commit message\"]`", nil)
		return
	}
	owner, repo, ok := splitOwnerRepo(args[0])
	if !ok {
		b.reply(chatID, "❌ Expected `owner/repo` first.", nil)
		return
	}
	path, content := args[1], args[2]
	message := "Add " + path
	if len(args) > 3 {
		message = args[3]
	}
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	if err := b.gateway().CreateFile(cctx, owner, repo, path, content, message); err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Committed `%s` to *%s/%s*.", path, owner, repo), nil)
}

func (b *Bot) cmdCreateIssue(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		b.reply(chatID, "Usage: `/ghissue <owner/repo> \"title\" [\"body\"] [\"label,label\"]`", nil)
		return
	}
	owner, repo, ok := splitOwnerRepo(args[0])
	if !ok {
		b.reply(chatID, "❌ Expected `owner/repo` first.", nil)
		return
	}
	title := args[1]
	body := ""
	if len(args) > 2 {
		body = args[2]
	}
	var labels []string
	if len(args) > 3 {
		for _, l := range strings.Split(args[3], ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
	}
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	url, err := b.gateway().CreateIssue(cctx, owner, repo, title, body, labels)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, "✅ Issue opened:\n"+url, nil)
}

func (b *Bot) cmdCreateGist(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		b.reply(chatID, "Usage: `/ghgist <filename> \"content\" [\"description\"] [public]`", nil)
		return
	}
	filename, content := args[0], args[1]
	description := ""
	if len(args) > 2 {
		description = args[2]
	}
	public := len(args) > 3 && args[3] == "public"
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	url, err := b.gateway().CreateGist(cctx, description, map[string]string{filename: content}, public)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.reply(chatID, "✅ Gist created:\n"+url, nil)
}

// cmdSetToken swaps the GitHub gateway for one built on the new token, then
// verifies it. The message containing the token is deleted from the chat.
func (b *Bot) cmdSetToken(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		b.log.WithError(err).Warn("deleting token message")
	}
	if len(args) == 0 {
		b.reply(chatID, "Usage: `/ghtoken <personal access token>`\nThe message is deleted right away.", nil)
		return
	}
	candidate := github.NewClient(args[0])
	cctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()
	login, err := candidate.TestConnection(cctx)
	if err != nil {
		b.reply(chatID, describeError(err), nil)
		return
	}
	b.setGateway(candidate)
	b.log.WithField("login", login).Info("github token replaced")
	b.reply(chatID, fmt.Sprintf("✅ Token accepted. Authenticated as *%s*.", login), nil)
}
