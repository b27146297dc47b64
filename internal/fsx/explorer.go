package fsx

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotAllowed is reported when the Guard rejects a path. Handlers turn it
// into a chat message; it must never crash the update loop.
var ErrNotAllowed = errors.New("path not allowed")

// hashSizeLimit bounds content hashing; larger files get no hash.
const hashSizeLimit = 10 * 1024 * 1024

// PathEntry is on-demand metadata for one filesystem path. Never cached;
// always re-derived per request.
type PathEntry struct {
	AbsolutePath string
	Name         string
	IsDir        bool
	IsFile       bool
	Size         int64
	ModifiedAt   time.Time
	Permissions  string
	MimeType     string
	ContentHash  string
	// Immediate children counts, directories only.
	FileCount int
	DirCount  int
}

// Listing is one page of a directory's immediate children.
type Listing struct {
	Path       string
	Items      []PathEntry
	Total      int
	Page       int
	PerPage    int
	TotalPages int
	ParentPath string // empty at the base directory
}

// Match is one hit of a filesystem search, path relative to the search root.
type Match struct {
	Name         string
	RelativePath string
	AbsolutePath string
	IsDir        bool
	Size         int64
}

// SearchType restricts what a filesystem search matches.
type SearchType string

const (
	SearchAll   SearchType = "all"
	SearchFiles SearchType = "files"
	SearchDirs  SearchType = "dirs"
)

// MaxSearchResults caps a recursive search so a huge tree cannot wedge the
// handler.
const MaxSearchResults = 500

// ListPerPage is the default directory listing page size.
const ListPerPage = 20

// Explorer performs all local filesystem operations, each gated by the Guard.
type Explorer struct {
	guard   *Guard
	tempDir string
}

func NewExplorer(guard *Guard, tempDir string) *Explorer {
	return &Explorer{guard: guard, tempDir: tempDir}
}

func (e *Explorer) Guard() *Guard { return e.guard }

// ListDirectory lists the immediate children of path, directories first, then
// case-insensitively by name, returning the 1-indexed page.
func (e *Explorer) ListDirectory(path string, page, perPage int) (*Listing, error) {
	if !e.guard.IsSafe(path) {
		return nil, ErrNotAllowed
	}
	if perPage <= 0 {
		perPage = ListPerPage
	}
	if page < 1 {
		page = 1
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	items := make([]PathEntry, 0, len(entries))
	for _, de := range entries {
		full := filepath.Join(path, de.Name())
		item := PathEntry{
			AbsolutePath: full,
			Name:         de.Name(),
			IsDir:        de.IsDir(),
			IsFile:       de.Type().IsRegular(),
		}
		if fi, err := de.Info(); err == nil {
			item.ModifiedAt = fi.ModTime()
			if item.IsFile {
				item.Size = fi.Size()
			}
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	l := &Listing{
		Path:       path,
		Items:      items[start:end],
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
	if filepath.Clean(path) != e.guard.BaseDir() {
		l.ParentPath = filepath.Dir(path)
	}
	return l, nil
}

// FileInfo computes metadata for one path. Content hashes are computed only
// for files under 10MB; directory entries get immediate-children counts and
// nothing deeper.
func (e *Explorer) FileInfo(path string) (*PathEntry, error) {
	if !e.guard.IsSafe(path) {
		return nil, ErrNotAllowed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", abs)
	}
	entry := &PathEntry{
		AbsolutePath: abs,
		Name:         filepath.Base(abs),
		IsDir:        info.IsDir(),
		IsFile:       info.Mode().IsRegular(),
		Size:         info.Size(),
		ModifiedAt:   info.ModTime(),
		Permissions:  info.Mode().String(),
	}
	switch {
	case entry.IsFile:
		if mt := mime.TypeByExtension(filepath.Ext(abs)); mt != "" {
			entry.MimeType = mt
		} else {
			entry.MimeType = "application/octet-stream"
		}
		if info.Size() < hashSizeLimit {
			entry.ContentHash = hashFile(abs)
		}
	case entry.IsDir:
		if children, err := os.ReadDir(abs); err == nil {
			for _, c := range children {
				if c.IsDir() {
					entry.DirCount++
				} else {
					entry.FileCount++
				}
			}
		}
	}
	return entry, nil
}

func hashFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Search walks rootPath recursively matching names case-insensitively
// against pattern. The walk stops at MaxSearchResults hits or when ctx is
// cancelled, whichever comes first.
func (e *Explorer) Search(ctx context.Context, rootPath, pattern string, st SearchType) ([]Match, error) {
	if !e.guard.IsSafe(rootPath) {
		return nil, ErrNotAllowed
	}
	needle := strings.ToLower(pattern)
	var matches []Match
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == rootPath {
			return nil
		}
		if d.IsDir() && st == SearchFiles || !d.IsDir() && st == SearchDirs {
			return nil
		}
		if !strings.Contains(strings.ToLower(d.Name()), needle) {
			return nil
		}
		rel, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			rel = path
		}
		m := Match{Name: d.Name(), RelativePath: rel, AbsolutePath: path, IsDir: d.IsDir()}
		if fi, infoErr := d.Info(); infoErr == nil && !d.IsDir() {
			m.Size = fi.Size()
		}
		matches = append(matches, m)
		if len(matches) >= MaxSearchResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return matches, err
	}
	return matches, nil
}

// CreateDirectory makes a new directory; the path must be guarded-safe and
// must not already exist.
func (e *Explorer) CreateDirectory(path string) error {
	if !e.guard.IsSafe(path) {
		return ErrNotAllowed
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("already exists: %s", filepath.Base(path))
	}
	return os.MkdirAll(path, 0o755)
}

// DeletePath removes a file, or a directory recursively.
func (e *Explorer) DeletePath(path string) error {
	if !e.guard.IsSafe(path) {
		return ErrNotAllowed
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// Rename renames oldPath to newName inside the same parent directory. It
// fails if the destination already exists; neither path is modified then.
func (e *Explorer) Rename(oldPath, newName string) (string, error) {
	if !e.guard.IsSafe(oldPath) {
		return "", ErrNotAllowed
	}
	if strings.ContainsRune(newName, os.PathSeparator) {
		return "", fmt.Errorf("new name must not contain path separators")
	}
	if _, err := os.Stat(oldPath); err != nil {
		return "", fmt.Errorf("path does not exist: %s", oldPath)
	}
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if !e.guard.IsSafe(newPath) {
		return "", ErrNotAllowed
	}
	if _, err := os.Stat(newPath); err == nil {
		return "", fmt.Errorf("an entry named %s already exists", newName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", err
	}
	return newPath, nil
}

// CleanTemp removes the temp download directory and recreates it empty,
// reporting how many files were removed and how many bytes were freed.
func (e *Explorer) CleanTemp() (files int, bytes int64, err error) {
	if _, statErr := os.Stat(e.tempDir); statErr != nil {
		return 0, 0, nil
	}
	filepath.WalkDir(e.tempDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		files++
		if fi, infoErr := d.Info(); infoErr == nil {
			bytes += fi.Size()
		}
		return nil
	})
	if err := os.RemoveAll(e.tempDir); err != nil {
		return files, bytes, err
	}
	return files, bytes, os.MkdirAll(e.tempDir, 0o755)
}
