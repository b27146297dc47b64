package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxArchiveSize caps archive downloads at the Telegram document limit.
	MaxArchiveSize = 50 * 1024 * 1024
	// DownloadTimeout bounds the whole archive fetch.
	DownloadTimeout = 300 * time.Second
)

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`)

// ParseRepoURL extracts owner and repository name from a GitHub web URL.
func ParseRepoURL(repoURL string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", false
	}
	owner = m[1]
	repo = strings.TrimSuffix(m[2], ".git")
	return owner, repo, true
}

// branchFromURL returns the branch named in a /tree/<branch> URL, or "main".
func branchFromURL(repoURL string) string {
	if i := strings.Index(repoURL, "/tree/"); i >= 0 {
		rest := repoURL[i+len("/tree/"):]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			rest = rest[:j]
		}
		if rest != "" {
			return rest
		}
	}
	return "main"
}

// ArchiveDownloader fetches repository zip archives from the GitHub website.
// It needs no token; only public archives are reachable this way.
type ArchiveDownloader struct {
	hc      *http.Client
	baseURL string // overridden in tests
}

func NewArchiveDownloader() *ArchiveDownloader {
	return &ArchiveDownloader{
		hc:      &http.Client{Timeout: DownloadTimeout},
		baseURL: "https://github.com",
	}
}

// NewArchiveDownloaderWithBase builds a downloader against a fake server.
func NewArchiveDownloaderWithBase(baseURL string, hc *http.Client) *ArchiveDownloader {
	if hc == nil {
		hc = &http.Client{Timeout: DownloadTimeout}
	}
	return &ArchiveDownloader{hc: hc, baseURL: baseURL}
}

// Download resolves repoURL to a zip archive, trying the main branch first
// and falling back to master, and returns the archive bytes plus a suggested
// filename. Archives over MaxArchiveSize are rejected without buffering the
// whole body.
func (d *ArchiveDownloader) Download(ctx context.Context, repoURL string) ([]byte, string, error) {
	repoURL = strings.TrimRight(strings.TrimSpace(repoURL), "/")
	if !strings.Contains(repoURL, "github.com") {
		return nil, "", fmt.Errorf("not a GitHub repository URL")
	}
	owner, repo, ok := ParseRepoURL(repoURL)
	if !ok {
		return nil, "", fmt.Errorf("could not extract owner/repo from URL")
	}

	branches := []string{branchFromURL(repoURL)}
	if branches[0] == "main" {
		branches = append(branches, "master")
	}

	var lastStatus int
	for _, branch := range branches {
		url := fmt.Sprintf("%s/%s/%s/archive/refs/heads/%s.zip", d.baseURL, owner, repo, branch)
		body, status, err := d.fetch(ctx, url)
		if err != nil {
			return nil, "", err
		}
		if status == http.StatusOK {
			return body, repo + ".zip", nil
		}
		lastStatus = status
	}
	return nil, "", &StatusError{StatusCode: lastStatus, Message: "could not download repository archive"}
}

func (d *ArchiveDownloader) fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := d.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("downloading archive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}
	if resp.ContentLength > MaxArchiveSize {
		return nil, 0, fmt.Errorf("archive is %.1fMB, limit is 50MB", float64(resp.ContentLength)/1024/1024)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxArchiveSize+1))
	if err != nil {
		return nil, 0, fmt.Errorf("reading archive: %w", err)
	}
	if len(body) > MaxArchiveSize {
		return nil, 0, fmt.Errorf("archive exceeds the 50MB limit")
	}
	return body, http.StatusOK, nil
}
