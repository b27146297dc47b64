package bot

import (
	"context"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/mvidal/repobot/internal/config"
	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/github"
	"github.com/mvidal/repobot/internal/session"
)

// messageLimit is Telegram's maximum message length.
const messageLimit = 4096

// sender is the slice of the Telegram API the bot uses. Implemented by
// *tgbotapi.BotAPI; tests inject a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gateway is the GitHub API surface the dispatcher needs. Implemented by
// *github.Client; tests inject a fake.
type Gateway interface {
	HasToken() bool
	TestConnection(ctx context.Context) (string, error)
	ListRepos(ctx context.Context, page, perPage int) (*github.RepoPage, error)
	CreateRepo(ctx context.Context, name, description string, private, autoInit bool) (string, error)
	DeleteRepo(ctx context.Context, owner, repo string) error
	ForkRepo(ctx context.Context, owner, repo string) (string, error)
	GetRepo(ctx context.Context, owner, repo string) (*github.RepoDetail, error)
	CreateFile(ctx context.Context, owner, repo, path, content, message string) error
	ListBranches(ctx context.Context, owner, repo string) ([]string, error)
	CreateBranch(ctx context.Context, owner, repo, branch, fromBranch string) error
	CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (string, error)
	ListOrgs(ctx context.Context) ([]github.Org, error)
	CreateGist(ctx context.Context, description string, files map[string]string, public bool) (string, error)
	SearchRepos(ctx context.Context, query string, page int) (*github.SearchResult, error)
}

// Downloader fetches repository zip archives.
type Downloader interface {
	Download(ctx context.Context, repoURL string) ([]byte, string, error)
}

// Bot routes inbound Telegram updates to command and callback handlers.
type Bot struct {
	api      sender
	dl       Downloader
	explorer *fsx.Explorer
	tracker  *session.Tracker
	cache    *session.SearchCache
	cfg      *config.Config
	log      *logrus.Logger
	username string

	mu sync.RWMutex
	gh Gateway // swapped by /ghtoken
}

// New wires the bot against the real Telegram API.
func New(cfg *config.Config, log *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	guard := fsx.NewGuard(cfg.BaseDir, cfg.TempDir, cfg.DownloadsDir, cfg.LogsDir)
	b := &Bot{
		api:      api,
		gh:       github.NewClient(cfg.GitHubToken),
		dl:       github.NewArchiveDownloader(),
		explorer: fsx.NewExplorer(guard, cfg.TempDir),
		tracker:  session.NewTracker(),
		cache:    session.NewSearchCache(),
		cfg:      cfg,
		log:      log,
		username: api.Self.UserName,
	}
	log.WithField("username", b.username).Info("authorized on Telegram")
	return b, nil
}

// Run consumes updates until ctx is cancelled. Each update is handled in its
// own goroutine; handlers catch their own errors and report them to the chat.
func (b *Bot) Run(ctx context.Context) error {
	api, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return nil // not connected to the real API (tests)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)
	b.log.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			go b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("handler panicked")
		}
	}()
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Text != "" {
		b.handleText(ctx, msg)
	}
}

// Cache, Tracker and Explorer expose the shared components so the ops server
// can report on them.
func (b *Bot) Cache() *session.SearchCache { return b.cache }
func (b *Bot) Tracker() *session.Tracker   { return b.tracker }
func (b *Bot) Explorer() *fsx.Explorer     { return b.explorer }

func (b *Bot) isAdmin(userID int64) bool {
	return userID == b.cfg.AdminID
}

func (b *Bot) gateway() Gateway {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gh
}

func (b *Bot) setGateway(g Gateway) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gh = g
}

// reply sends a Markdown message, optionally with an inline keyboard.
func (b *Bot) reply(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Warn("sending message")
	}
}

// replyPlain sends without Markdown parsing, for text containing raw paths.
func (b *Bot) replyPlain(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, truncate(text))); err != nil {
		b.log.WithError(err).Warn("sending message")
	}
}

// edit rewrites an existing message in place.
func (b *Bot) edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, truncate(text))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		edit.ReplyMarkup = kb
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.WithError(err).Warn("editing message")
	}
}

// progress sends a status message and returns an updater that edits it.
func (b *Bot) progress(chatID int64, text string) func(string, *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.WithError(err).Warn("sending progress message")
		return func(text string, kb *tgbotapi.InlineKeyboardMarkup) { b.reply(chatID, text, kb) }
	}
	return func(text string, kb *tgbotapi.InlineKeyboardMarkup) {
		b.edit(chatID, sent.MessageID, text, kb)
	}
}

// answer acknowledges a callback query, optionally with an alert toast.
func (b *Bot) answer(queryID, text string, alert bool) {
	cb := tgbotapi.NewCallback(queryID, text)
	cb.ShowAlert = alert
	if _, err := b.api.Request(cb); err != nil {
		b.log.WithError(err).Warn("answering callback")
	}
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = truncate(caption)
	doc.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(doc)
	return err
}

func truncate(s string) string {
	if len(s) <= messageLimit {
		return s
	}
	// Back the cut off to a rune boundary; a mid-rune slice is invalid
	// UTF-8 and Telegram rejects the whole message.
	cut := messageLimit - 20
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n\n... (truncated)"
}
