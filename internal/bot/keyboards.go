package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/github"
)

func btn(label, op string, args ...string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, encodePayload(op, args...))
}

func urlBtn(label, url string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonURL(label, url)
}

func mainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("🔍 Search repositories", "search"),
			btn("📖 Help", "help"),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("🐙 GitHub account", "github"),
			btn("🗂 File manager", "root"),
		),
	)
	return &kb
}

// searchKeyboard builds the result picker plus pagination for one search page.
// Buttons carry only the session id and a result index.
func searchKeyboard(sessionID string, res *github.SearchResult) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range res.Repos {
		label := fmt.Sprintf("%d. %s", (res.Page-1)*github.SearchPerPage+i+1, r.FullName)
		if len(label) > 40 {
			label = label[:37] + "..."
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			btn(label, "sel", sessionID, strconv.Itoa(i)),
		))
	}
	var nav []tgbotapi.InlineKeyboardButton
	if res.HasPrev {
		nav = append(nav, btn("⬅️ Prev", "pg", sessionID, strconv.Itoa(res.Page-1)))
	}
	if res.HasNext {
		nav = append(nav, btn("Next ➡️", "pg", sessionID, strconv.Itoa(res.Page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// repoDetailKeyboard offers download and back navigation for a picked result.
func repoDetailKeyboard(sessionID string, d *github.RepoDetail) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("⬇️ Download ZIP", "dl", d.URL),
			urlBtn("🔗 Open on GitHub", d.URL),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("⬅️ Back to results", "bk", sessionID),
		),
	)
	return &kb
}

// urlDetailKeyboard is shown when a plain GitHub URL arrives in chat.
func urlDetailKeyboard(repoURL string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("⬇️ Download ZIP", "dl", repoURL),
			btn("ℹ️ Details", "urlinfo", repoURL),
		),
	)
	return &kb
}

// listingKeyboard builds per-entry buttons plus pagination and directory
// actions for one page of a directory listing.
func listingKeyboard(l *fsx.Listing) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range l.Items {
		label := item.Name
		if item.IsDir {
			label = "📁 " + label
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				btn(label, "fls", item.AbsolutePath, "1"),
			))
		} else {
			label = "📄 " + label
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				btn(label, "finfo", item.AbsolutePath),
			))
		}
	}
	var nav []tgbotapi.InlineKeyboardButton
	if l.Page > 1 {
		nav = append(nav, btn("⬅️ Prev", "fls", l.Path, strconv.Itoa(l.Page-1)))
	}
	if l.Page < l.TotalPages {
		nav = append(nav, btn("Next ➡️", "fls", l.Path, strconv.Itoa(l.Page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	actions := []tgbotapi.InlineKeyboardButton{
		btn("➕ New folder", "fmk", l.Path),
		btn("🔍 Search here", "fsr", l.Path),
	}
	rows = append(rows, actions)
	if l.ParentPath != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			btn("⬆️ Up", "fls", l.ParentPath, "1"),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// fileActionsKeyboard is attached to a file info view.
func fileActionsKeyboard(e *fsx.PathEntry) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if e.IsFile {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			btn("📤 Send file", "fsend", e.AbsolutePath),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			btn("✏️ Rename", "fren", e.AbsolutePath),
			btn("🗑 Delete", "fdel", e.AbsolutePath),
		),
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// confirmKeyboard is a yes/cancel pair for a destructive action. confirmOp
// receives args; Cancel is a bare op.
func confirmKeyboard(confirmLabel, confirmOp string, args ...string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn(confirmLabel, confirmOp, args...),
			btn("❌ Cancel", "cancel"),
		),
	)
	return &kb
}

func githubMenuKeyboard(hasToken bool) *tgbotapi.InlineKeyboardMarkup {
	if !hasToken {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				btn("🔑 How to set a token", "ghtokenhelp"),
			),
		)
		return &kb
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("📚 My repositories", "ghrepos", "1"),
			btn("➕ New repository", "ghnew"),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("🍴 Fork a repository", "ghfork"),
			btn("🗑 Delete a repository", "ghdelask"),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("🏢 Organizations", "ghorgs"),
			btn("🔌 Test connection", "ghtest"),
		),
	)
	return &kb
}

// repoListKeyboard builds per-repo buttons plus pagination for /ghrepos.
func repoListKeyboard(p *github.RepoPage) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range p.Repos {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			btn(r.Name, "ghinfo", r.Owner, r.Name),
		))
	}
	var nav []tgbotapi.InlineKeyboardButton
	if p.Page > 1 {
		nav = append(nav, btn("⬅️ Prev", "ghrepos", strconv.Itoa(p.Page-1)))
	}
	if p.HasNext {
		nav = append(nav, btn("Next ➡️", "ghrepos", strconv.Itoa(p.Page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// ownRepoKeyboard is attached to the detail view of the admin's own repo.
func ownRepoKeyboard(owner, repo string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("🌿 Branches", "ghbr", owner, repo),
			btn("➕ New branch", "ghnbr", owner, repo),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("🗑 Delete", "ghdel", owner, repo),
			btn("⬅️ Back", "ghrepos", "1"),
		),
	)
	return &kb
}

// visibilityKeyboard finishes the create-repo wizard. Name and description are
// held server-side; the payload carries only the choice.
func visibilityKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("🌐 Public", "ghvis", "public"),
			btn("🔒 Private", "ghvis", "private"),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("❌ Cancel", "cancel"),
		),
	)
	return &kb
}
