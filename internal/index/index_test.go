package index_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/index"
)

// --- EntryPath Tests ---

func TestEntryPath(t *testing.T) {
	cases := map[string]string{
		"a":          filepath.Join("1", "a"),
		"ab":         filepath.Join("2", "ab"),
		"abc":        filepath.Join("3", "a", "abc"),
		"serde":      filepath.Join("se", "rd", "serde"),
		"serde-json": filepath.Join("se", "rd", "serde-json"),
	}
	for name, want := range cases {
		assert.Equal(t, want, index.EntryPath(name), "path for %q", name)
	}
}

func TestEntryPath_LowercasesButKeepsHyphens(t *testing.T) {
	assert.Equal(t, filepath.Join("in", "fl", "inflector"), index.EntryPath("Inflector"))
	assert.Equal(t, filepath.Join("my", "-c", "my-crate"), index.EntryPath("My-Crate"))
}

// --- Git-backed Tests ---

func gitEnv(t *testing.T) (*index.Index, string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	bare := filepath.Join(root, "remote.git")
	clone := filepath.Join(root, "checkout")

	run := func(dir string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		require.NoError(t, cmd.Run(), "git %s: %s", strings.Join(args, " "), stderr.String())
	}

	require.NoError(t, os.MkdirAll(bare, 0o755))
	run(root, "init", "--bare", "-b", "master", bare)
	run(root, "clone", bare, clone)
	run(clone, "config", "user.email", "registry@example.com")
	run(clone, "config", "user.name", "registry")

	// Seed the branch so later pushes target an existing ref.
	require.NoError(t, os.WriteFile(filepath.Join(clone, "config.json"), []byte("{}\n"), 0o644))
	run(clone, "add", "config.json")
	run(clone, "commit", "-m", "initial")
	run(clone, "push", "origin", "HEAD:master")

	return index.New(clone, "master"), clone, bare
}

func remoteSubjects(t *testing.T, bare string) []string {
	t.Helper()
	out, err := exec.Command("git", "-C", bare, "log", "--format=%s", "master").Output()
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(out)), "\n")
}

func TestAdd_AppendsLineAndPushes(t *testing.T) {
	idx, clone, bare := gitEnv(t)
	ctx := context.Background()

	err := idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.0.0", Cksum: "abc123"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(clone, "se", "rd", "serde"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"name":"serde"`)
	assert.Contains(t, lines[0], `"vers":"1.0.0"`)
	assert.Contains(t, lines[0], `"yanked":false`)

	subjects := remoteSubjects(t, bare)
	assert.Equal(t, "Updating crate `serde#1.0.0`", subjects[0], "commit should reach the remote")
}

func TestAdd_AccumulatesVersions(t *testing.T) {
	idx, clone, _ := gitEnv(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.0.0"}))
	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.1.0"}))

	data, err := os.ReadFile(filepath.Join(clone, "se", "rd", "serde"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 2)
}

func TestSetYanked_RewritesOnlyMatchingLine(t *testing.T) {
	idx, clone, bare := gitEnv(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.0.0", Cksum: "aaa"}))
	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.1.0", Cksum: "bbb"}))

	path := filepath.Join(clone, "se", "rd", "serde")
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	beforeLines := strings.Split(strings.TrimSuffix(string(before), "\n"), "\n")

	require.NoError(t, idx.SetYanked(ctx, "serde", "1.0.0", true))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	afterLines := strings.Split(strings.TrimSuffix(string(after), "\n"), "\n")
	require.Len(t, afterLines, 2)

	assert.Contains(t, afterLines[0], `"yanked":true`)
	assert.Equal(t, beforeLines[1], afterLines[1], "the other line must not change")

	subjects := remoteSubjects(t, bare)
	assert.Equal(t, "Yanking crate `serde#1.0.0`", subjects[0])
}

func TestSetYanked_Unyank(t *testing.T) {
	idx, clone, _ := gitEnv(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.0.0"}))
	require.NoError(t, idx.SetYanked(ctx, "serde", "1.0.0", true))
	require.NoError(t, idx.SetYanked(ctx, "serde", "1.0.0", false))

	data, err := os.ReadFile(filepath.Join(clone, "se", "rd", "serde"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"yanked":false`)
}

func TestSetYanked_UnknownVersion(t *testing.T) {
	idx, _, _ := gitEnv(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.0.0"}))
	err := idx.SetYanked(ctx, "serde", "9.9.9", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in index")
}

func TestAdd_RecoversFromRemoteAdvance(t *testing.T) {
	idx, _, bare := gitEnv(t)
	ctx := context.Background()

	// A second writer moves the remote branch forward.
	root := t.TempDir()
	other := filepath.Join(root, "other")
	run := func(dir string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		require.NoError(t, cmd.Run(), "git %s: %s", strings.Join(args, " "), stderr.String())
	}
	run(root, "clone", bare, other)
	run(other, "config", "user.email", "other@example.com")
	run(other, "config", "user.name", "other")
	require.NoError(t, os.MkdirAll(filepath.Join(other, "1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(other, "1", "q"), []byte("{}\n"), 0o644))
	run(other, "add", ".")
	run(other, "commit", "-m", "concurrent update")
	run(other, "push", "origin", "HEAD:master")

	// Our stale checkout must rebase and still land its commit.
	require.NoError(t, idx.Add(ctx, index.Entry{Name: "serde", Vers: "1.0.0"}))

	subjects := remoteSubjects(t, bare)
	assert.Contains(t, subjects, "Updating crate `serde#1.0.0`")
	assert.Contains(t, subjects, "concurrent update")
}
