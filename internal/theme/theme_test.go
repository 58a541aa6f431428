package theme

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEmbedded(t *testing.T) {
	css, ok := Embedded("default")
	require.True(t, ok)
	assert.Contains(t, css, ".popctl-popup")
	assert.Contains(t, css, "@popover_bg_color")

	_, ok = Embedded("_base.css")
	assert.True(t, ok, "partials are reachable by file name")

	_, ok = Embedded("nope")
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mine.css", ".popctl-bar {}")
	writeFile(t, dir, "_partial.css", "")
	writeFile(t, dir, "notes.txt", "")

	assert.Equal(t, []string{"compact", "default"}, List(""))
	assert.Equal(t, []string{"compact", "default", "mine"}, List(dir))
}

func TestResolve_Bundled(t *testing.T) {
	th, err := Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, th.Name)
	assert.True(t, th.Bundled())
	assert.Contains(t, th.CSS, "/* imported (bundled): _base.css */")
	assert.Contains(t, th.CSS, ".popctl-anchor")
}

func TestResolve_UserOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "compact.css", ".popctl-bar { color: red; }")

	th, err := Resolve("compact", dir)
	require.NoError(t, err)
	assert.False(t, th.Bundled())
	assert.Equal(t, ".popctl-bar { color: red; }", th.CSS)
}

func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve("missing", t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "_grandchild.css", ".grandchild { color: blue; }")
	writeFile(t, dir, "_child.css", "@import \"_grandchild.css\";\n.child {}")

	out := ProcessImports("@import url('_child.css');\n.main {}", dir, nil)
	assert.Contains(t, out, "/* imported: _child.css */")
	assert.Contains(t, out, "/* imported: _grandchild.css */")
	assert.Contains(t, out, ".grandchild")
	assert.Contains(t, out, ".main")
}

func TestProcessImports_Circular(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "_a.css", "@import \"_b.css\";\n.a {}")
	writeFile(t, dir, "_b.css", "@import \"_a.css\";\n.b {}")

	out := ProcessImports(`@import "_a.css";`, dir, nil)
	assert.Contains(t, out, "/* imported: _b.css */")
	assert.Contains(t, out, "/* circular import: _a.css */")
}

func TestProcessImports_Fallbacks(t *testing.T) {
	dir := t.TempDir()

	out := ProcessImports(`@import "_base.css";`, dir, nil)
	assert.Contains(t, out, "/* imported (bundled): _base.css */")

	out = ProcessImports(`@import "nonexistent.css";`, dir, nil)
	assert.Equal(t, "/* import failed: nonexistent.css */", out)
}

func TestImportRegex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`@import "file.css";`, "file.css"},
		{`@import 'file.css';`, "file.css"},
		{`@import url("file.css");`, "file.css"},
		{`@import url( "file.css" );`, "file.css"},
		{`@import "_partial.css"`, "_partial.css"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := importRegex.FindStringSubmatch(tt.input)
			require.Len(t, m, 2)
			assert.Equal(t, tt.want, m[1])
		})
	}
}

func TestTheme_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "live.css", ".popctl-bar { color: red; }")

	th, err := Load("live", path)
	require.NoError(t, err)

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unmodified file")

	writeFile(t, dir, "live.css", ".popctl-bar { color: blue; }")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err = th.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, th.CSS, "blue")

	bundledTheme, err := Resolve("default", "")
	require.NoError(t, err)
	changed, err = bundledTheme.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "live.css", ".a {}")
	th, err := Load("live", path)
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []string
	)
	w := NewWatcher(th, nil)
	w.SetPollInterval(10 * time.Millisecond)
	w.SetChangeCallback(func(css string) {
		mu.Lock()
		got = append(got, css)
		mu.Unlock()
	})
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	writeFile(t, dir, "live.css", ".b {}")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == ".b {}"
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()
}
