package fsx

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TreeMaxDepth bounds tree rendering; deeper levels are simply omitted.
const TreeMaxDepth = 3

// Tree renders a bounded-depth directory tree with box-drawing connectors.
// Traversal stops early if ctx is cancelled.
func (e *Explorer) Tree(ctx context.Context, path string) (string, error) {
	if !e.guard.IsSafe(path) {
		return "", ErrNotAllowed
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", ErrNotAllowed
	}
	var b strings.Builder
	b.WriteString(filepath.Base(strings.TrimRight(path, "/")) + "/\n")
	e.treeLevel(ctx, &b, path, "", 0)
	return b.String(), nil
}

func (e *Explorer) treeLevel(ctx context.Context, b *strings.Builder, dir, prefix string, depth int) {
	if depth >= TreeMaxDepth || ctx.Err() != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.WriteString(prefix + "└── [unreadable]\n")
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
	for i, entry := range entries {
		last := i == len(entries)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + connector + entry.Name())
		if entry.IsDir() {
			b.WriteString("/")
		}
		b.WriteString("\n")
		if entry.IsDir() {
			e.treeLevel(ctx, b, filepath.Join(dir, entry.Name()), childPrefix, depth+1)
		}
	}
}
