package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url         string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/octocat/Spoon-Knife", "octocat", "Spoon-Knife", true},
		{"https://github.com/octocat/repo.git", "octocat", "repo", true},
		{"https://github.com/torvalds/linux/tree/master", "torvalds", "linux", true},
		{"https://example.com/a/b", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := ParseRepoURL(tt.url)
		if ok != tt.ok || owner != tt.owner || repo != tt.repo {
			t.Errorf("ParseRepoURL(%q) = %q, %q, %v", tt.url, owner, repo, ok)
		}
	}
}

func TestDownload_fallbackToMaster(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "/heads/main.zip") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("zipbytes"))
	}))
	defer server.Close()

	d := NewArchiveDownloaderWithBase(server.URL, nil)
	body, name, err := d.Download(context.Background(), "https://github.com/u/r")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(body) != "zipbytes" || name != "r.zip" {
		t.Fatalf("body=%q name=%q", body, name)
	}
	if len(paths) != 2 || !strings.Contains(paths[1], "master.zip") {
		t.Fatalf("paths = %v", paths)
	}
}

func TestDownload_branchFromTreeURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/heads/dev.zip") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := NewArchiveDownloaderWithBase(server.URL, nil)
	if _, _, err := d.Download(context.Background(), "https://github.com/u/r/tree/dev"); err != nil {
		t.Fatalf("Download: %v", err)
	}
}

func TestDownload_rejectsOversizedArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "62914560") // 60MB
		w.Write(make([]byte, 1024))
	}))
	defer server.Close()

	d := NewArchiveDownloaderWithBase(server.URL, nil)
	_, _, err := d.Download(context.Background(), "https://github.com/u/r")
	if err == nil || !strings.Contains(err.Error(), "50MB") {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestDownload_rejectsNonGitHubURL(t *testing.T) {
	d := NewArchiveDownloader()
	if _, _, err := d.Download(context.Background(), "https://gitlab.com/u/r"); err == nil {
		t.Fatal("expected error for non-GitHub URL")
	}
}
