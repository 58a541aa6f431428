package theme

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

//go:embed themes/*.css
var bundled embed.FS

// DefaultName is the theme used when none is configured.
const DefaultName = "default"

// ErrNotFound is returned when a theme exists neither on disk nor bundled.
var ErrNotFound = errors.New("theme not found")

// importRegex matches @import "file.css"; @import 'file.css'; and @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string
	Path    string // empty for bundled themes
	CSS     string
	ModTime time.Time
}

// Bundled reports whether the theme came from the embedded set.
func (t *Theme) Bundled() bool { return t.Path == "" }

// Dir returns the user themes directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "popctl", "themes"), nil
}

// Embedded returns the raw CSS of a bundled theme or partial.
func Embedded(name string) (string, bool) {
	data, err := bundled.ReadFile("themes/" + strings.TrimSuffix(name, ".css") + ".css")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// List returns the names of bundled themes plus any .css files in dir,
// sorted and without partials.
func List(dir string) []string {
	seen := make(map[string]bool)
	add := func(entries []fs.DirEntry) {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".css" {
				continue
			}
			seen[strings.TrimSuffix(name, ".css")] = true
		}
	}
	if entries, err := fs.ReadDir(bundled, "themes"); err == nil {
		add(entries)
	}
	if dir != "" {
		if entries, err := os.ReadDir(dir); err == nil {
			add(entries)
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve finds a theme by name. A file in dir overrides a bundled theme
// of the same name.
func Resolve(name, dir string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	if dir != "" {
		path := filepath.Join(dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			return Load(name, path)
		}
	}
	if css, ok := Embedded(name); ok {
		return &Theme{Name: name, CSS: ProcessImports(css, "", nil)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Load reads a theme file and inlines its imports.
func Load(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// Reload re-reads a file theme if it was modified and reports whether the
// CSS changed. Bundled themes never change.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled() {
		return false, nil
	}
	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}
	fresh, err := Load(t.Name, t.Path)
	if err != nil {
		return false, err
	}
	changed := fresh.CSS != t.CSS
	t.CSS, t.ModTime = fresh.CSS, fresh.ModTime
	return changed, nil
}

// ProcessImports inlines @import statements, resolving paths against
// baseDir and then the bundled set. seen guards against cycles.
func ProcessImports(css, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		ref := sub[1]

		full := ref
		if !filepath.IsAbs(ref) && baseDir != "" {
			full = filepath.Join(baseDir, ref)
		}
		if seen[full] {
			return "/* circular import: " + ref + " */"
		}
		seen[full] = true

		if baseDir != "" || filepath.IsAbs(ref) {
			if data, err := os.ReadFile(full); err == nil {
				return "/* imported: " + ref + " */\n" + ProcessImports(string(data), filepath.Dir(full), seen)
			}
		}
		if data, ok := Embedded(filepath.Base(ref)); ok {
			return "/* imported (bundled): " + ref + " */\n" + ProcessImports(data, "", seen)
		}
		return "/* import failed: " + ref + " */"
	})
}
