package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/github"
)

func formatSearchResults(res *github.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Search results for* `%s`\n", res.Query)
	fmt.Fprintf(&b, "Found %s repositories (page %d)\n\n", humanize.Comma(int64(res.TotalCount)), res.Page)
	offset := (res.Page - 1) * github.SearchPerPage
	for i, r := range res.Repos {
		fmt.Fprintf(&b, "*%d. %s*\n", offset+i+1, r.FullName)
		fmt.Fprintf(&b, "   %s\n", oneLine(r.Description))
		fmt.Fprintf(&b, "   ⭐ %s  🍴 %s  💻 %s\n\n",
			humanize.Comma(int64(r.Stars)), humanize.Comma(int64(r.Forks)), r.Language)
	}
	b.WriteString("Pick a repository below for details, or flip pages.")
	return b.String()
}

func formatRepoDetail(d *github.RepoDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *%s*\n\n", d.FullName)
	fmt.Fprintf(&b, "%s\n\n", d.Description)
	fmt.Fprintf(&b, "⭐ Stars: %s\n", humanize.Comma(int64(d.Stars)))
	fmt.Fprintf(&b, "🍴 Forks: %s\n", humanize.Comma(int64(d.Forks)))
	fmt.Fprintf(&b, "👀 Watchers: %s\n", humanize.Comma(int64(d.Watchers)))
	fmt.Fprintf(&b, "🐛 Open issues: %d\n", d.OpenIssues)
	fmt.Fprintf(&b, "💻 Language: %s\n", d.Language)
	fmt.Fprintf(&b, "📏 Size: %s\n", humanize.Bytes(uint64(d.SizeKB)*1024))
	fmt.Fprintf(&b, "🌿 Default branch: %s\n", d.DefaultBranch)
	if d.License != "" {
		fmt.Fprintf(&b, "📄 License: %s\n", d.License)
	}
	if d.Homepage != "" {
		fmt.Fprintf(&b, "🏠 Homepage: %s\n", d.Homepage)
	}
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "📅 Created: %s\n", d.CreatedAt.Format("2006-01-02"))
	}
	if !d.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "🔄 Updated: %s\n", d.UpdatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "\n🔗 %s", d.URL)
	return b.String()
}

func formatRepoPage(p *github.RepoPage) string {
	var b strings.Builder
	b.WriteString("📚 *Your repositories*")
	if p.Total > 0 {
		fmt.Fprintf(&b, " (~%d total)", p.Total)
	}
	fmt.Fprintf(&b, "\nPage %d\n\n", p.Page)
	offset := (p.Page - 1) * p.PerPage
	for i, r := range p.Repos {
		visibility := "🌐"
		if r.Private {
			visibility = "🔒"
		}
		fmt.Fprintf(&b, "%d. %s *%s*\n", offset+i+1, visibility, r.Name)
		fmt.Fprintf(&b, "   %s\n", oneLine(r.Description))
		fmt.Fprintf(&b, "   ⭐ %d  💻 %s\n\n", r.Stars, r.Language)
	}
	return b.String()
}

func formatListing(l *fsx.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s\n", l.Path)
	fmt.Fprintf(&b, "%d entries, page %d/%d\n\n", l.Total, l.Page, l.TotalPages)
	for _, item := range l.Items {
		if item.IsDir {
			fmt.Fprintf(&b, "📁 %s/\n", item.Name)
		} else {
			fmt.Fprintf(&b, "📄 %s (%s)\n", item.Name, humanize.Bytes(uint64(item.Size)))
		}
	}
	if len(l.Items) == 0 {
		b.WriteString("(empty)\n")
	}
	return b.String()
}

func formatFileInfo(e *fsx.PathEntry) string {
	var b strings.Builder
	if e.IsDir {
		fmt.Fprintf(&b, "📁 *Directory info*\n\n")
	} else {
		fmt.Fprintf(&b, "📄 *File info*\n\n")
	}
	fmt.Fprintf(&b, "Name: %s\n", e.Name)
	fmt.Fprintf(&b, "Path: %s\n", e.AbsolutePath)
	fmt.Fprintf(&b, "Permissions: %s\n", e.Permissions)
	fmt.Fprintf(&b, "Modified: %s\n", e.ModifiedAt.Format("2006-01-02 15:04:05"))
	if e.IsDir {
		fmt.Fprintf(&b, "Contains: %d files, %d directories\n", e.FileCount, e.DirCount)
	} else {
		fmt.Fprintf(&b, "Size: %s (%d bytes)\n", humanize.Bytes(uint64(e.Size)), e.Size)
		fmt.Fprintf(&b, "Type: %s\n", e.MimeType)
		if e.ContentHash != "" {
			fmt.Fprintf(&b, "MD5: `%s`\n", e.ContentHash)
		}
	}
	return b.String()
}

func formatMatches(pattern string, matches []fsx.Match) string {
	if len(matches) == 0 {
		return fmt.Sprintf("🔍 No matches for `%s`.", pattern)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *%d matches for* `%s`", len(matches), pattern)
	if len(matches) >= fsx.MaxSearchResults {
		b.WriteString(" (capped)")
	}
	b.WriteString("\n\n")
	const maxShown = 30
	for i, m := range matches {
		if i >= maxShown {
			fmt.Fprintf(&b, "\n... and %d more", len(matches)-maxShown)
			break
		}
		if m.IsDir {
			fmt.Fprintf(&b, "📁 %s\n", m.RelativePath)
		} else {
			fmt.Fprintf(&b, "📄 %s (%s)\n", m.RelativePath, humanize.Bytes(uint64(m.Size)))
		}
	}
	return b.String()
}

func formatDiskUsage(du *fsx.DiskUsage) string {
	var b strings.Builder
	b.WriteString("💾 *Disk usage*\n\n")
	fmt.Fprintf(&b, "Total: %s\n", humanize.Bytes(du.Total))
	fmt.Fprintf(&b, "Used: %s (%.1f%%)\n", humanize.Bytes(du.Used), du.UsedPercent)
	fmt.Fprintf(&b, "Free: %s\n", humanize.Bytes(du.Free))
	fmt.Fprintf(&b, "\n%s\n\n", usageBar(du.UsedPercent))
	fmt.Fprintf(&b, "🗑 Temp downloads: %d files, %s", du.TempFiles, humanize.Bytes(uint64(du.TempSize)))
	return b.String()
}

// usageBar renders a 10-segment progress bar like ▓▓▓▓░░░░░░.
func usageBar(percent float64) string {
	filled := int(percent / 10)
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", 10-filled)
}

func formatStats(du *fsx.DiskUsage, cacheLen, pendingLen int) string {
	var b strings.Builder
	b.WriteString("📊 *Bot statistics*\n\n")
	fmt.Fprintf(&b, "Active search sessions: %d\n", cacheLen)
	fmt.Fprintf(&b, "Pending operations: %d\n", pendingLen)
	if du != nil {
		fmt.Fprintf(&b, "Disk used: %.1f%% of %s\n", du.UsedPercent, humanize.Bytes(du.Total))
		fmt.Fprintf(&b, "Temp area: %d files, %s\n", du.TempFiles, humanize.Bytes(uint64(du.TempSize)))
	}
	return b.String()
}

func formatOrgs(orgs []github.Org) string {
	if len(orgs) == 0 {
		return "You are not a member of any organizations."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏢 *Your organizations* (%d)\n\n", len(orgs))
	for _, o := range orgs {
		fmt.Fprintf(&b, "• *%s*", o.Login)
		if o.Description != "" {
			fmt.Fprintf(&b, " %s", oneLine(o.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatBranches(owner, repo string, branches []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌿 *Branches of %s/%s* (%d)\n\n", owner, repo, len(branches))
	for _, name := range branches {
		fmt.Fprintf(&b, "• `%s`\n", name)
	}
	return b.String()
}

// describeError turns gateway and filesystem failures into a chat-safe line.
func describeError(err error) string {
	var se *github.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case 401:
			return "❌ GitHub says 401: the token is invalid or expired."
		case 403:
			return fmt.Sprintf("❌ GitHub says 403: %s", se.Message)
		case 404:
			return "❌ GitHub says 404: repository not found (or no access)."
		case 422:
			return fmt.Sprintf("❌ GitHub says 422: %s", se.Message)
		default:
			return fmt.Sprintf("❌ GitHub error: %s", se.Error())
		}
	}
	return "❌ " + err.Error()
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 100 {
		s = s[:97] + "..."
	}
	return s
}
