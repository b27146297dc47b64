package fsx

import (
	"os"
	"path/filepath"
	"strings"
)

// Guard decides whether a filesystem path may be touched at all. Every
// mutating or reading Explorer operation consults it first.
type Guard struct {
	baseDir string
	allowed []string
	denied  []string
}

// defaultDenied are system directories the bot must never operate on, even
// when a sloppy allow-list would lexically cover them.
func defaultDenied(home string) []string {
	d := []string{"/", "/home", "/etc", "/var", "/usr", "/bin", "/sbin", "/root"}
	if home != "" {
		d = append(d, home)
	}
	return d
}

// NewGuard builds a guard rooted at baseDir. The allowed set is baseDir plus
// any extra directories (temp, downloads, logs).
func NewGuard(baseDir string, extra ...string) *Guard {
	abs := func(p string) string {
		a, err := filepath.Abs(p)
		if err != nil {
			return p
		}
		return a
	}
	home, _ := os.UserHomeDir()
	g := &Guard{
		baseDir: abs(baseDir),
		denied:  defaultDenied(home),
	}
	g.allowed = append(g.allowed, g.baseDir)
	for _, dir := range extra {
		g.allowed = append(g.allowed, abs(dir))
	}
	return g
}

// contains reports whether child equals parent or lives underneath it. The
// comparison is path-segment-aware: /app-evil is not inside /app.
func contains(parent, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)
	if parent == child {
		return true
	}
	if parent == string(filepath.Separator) {
		return strings.HasPrefix(child, string(filepath.Separator))
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

// IsSafe reports whether path may be read or mutated. The path is resolved to
// an absolute canonical form; any resolution failure counts as unsafe.
//
// A denied directory blocks the path unless it is the base directory itself
// or an ancestor of it ("/" and often the user's home necessarily contain the
// application area; blocking on those would block everything). After the deny
// check the path must still fall under an allowed directory.
func (g *Guard) IsSafe(path string) bool {
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)

	for _, denied := range g.denied {
		if denied == g.baseDir || contains(denied, g.baseDir) {
			continue
		}
		if contains(denied, abs) {
			return false
		}
	}
	for _, dir := range g.allowed {
		if contains(dir, abs) {
			return true
		}
	}
	return false
}

// BaseDir returns the guard's root.
func (g *Guard) BaseDir() string { return g.baseDir }
