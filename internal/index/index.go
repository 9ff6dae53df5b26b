// Package index maintains the registry's git-backed version index: one
// line-delimited JSON file per crate in a working tree with a remote.
// Publish appends a line; yank rewrites the single matching line's
// yanked field. All git plumbing goes through the git CLI targeting the
// checkout via -C.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cenk/backoff"
)

// Entry is one line of a crate's index file.
type Entry struct {
	Name     string              `json:"name"`
	Vers     string              `json:"vers"`
	Deps     []DependencyEntry   `json:"deps"`
	Cksum    string              `json:"cksum"`
	Features map[string][]string `json:"features"`
	Yanked   bool                `json:"yanked"`
}

// DependencyEntry is the dependency summary recorded in index lines.
type DependencyEntry struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          *string  `json:"target"`
	Kind            string   `json:"kind"`
}

// Writer is the index surface the publish pipeline and yank depend on.
type Writer interface {
	Add(ctx context.Context, e Entry) error
	SetYanked(ctx context.Context, name, vers string, yanked bool) error
}

// Index is a git checkout of the registry index. A single process-wide
// critical section guards every mutation so concurrent publishes never
// interleave partial writes into the working tree; the remote push is
// retried with pull --rebase under exponential backoff when another
// writer got there first.
type Index struct {
	dir    string
	branch string
	mu     sync.Mutex
}

// New returns an Index over the checkout at dir, pushing to
// origin/branch.
func New(dir, branch string) *Index {
	return &Index{dir: dir, branch: branch}
}

// EntryPath returns the repository-relative path of a crate's index
// file: 1/, 2/ and 3/<initial>/ buckets for short names, otherwise the
// first two character pairs as nested directories. The name is
// lower-cased; hyphens are preserved.
func EntryPath(name string) string {
	name = strings.ToLower(name)
	switch len(name) {
	case 1:
		return filepath.Join("1", name)
	case 2:
		return filepath.Join("2", name)
	case 3:
		return filepath.Join("3", name[:1], name)
	default:
		return filepath.Join(name[0:2], name[2:4], name)
	}
}

// Add appends e as one JSON line to the crate's index file and
// commits+pushes the change.
func (x *Index) Add(ctx context.Context, e Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	rel := EntryPath(e.Name)
	abs := filepath.Join(x.dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating index directory for %s: %w", e.Name, err)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding index entry for %s: %w", e.Name, err)
	}

	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening index file for %s: %w", e.Name, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("appending index entry for %s: %w", e.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file for %s: %w", e.Name, err)
	}

	return x.commitAndPush(ctx, rel, fmt.Sprintf("Updating crate `%s#%s`", e.Name, e.Vers))
}

// SetYanked rewrites the yanked field of the single line matching vers,
// leaving every other line byte-for-byte unchanged.
func (x *Index) SetYanked(ctx context.Context, name, vers string, yanked bool) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	rel := EntryPath(name)
	abs := filepath.Join(x.dir, rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("reading index file for %s: %w", name, err)
	}

	lines := bytes.Split(data, []byte("\n"))
	found := false
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("decoding index line %d for %s: %w", i+1, name, err)
		}
		if e.Vers != vers {
			continue
		}
		e.Yanked = yanked
		rewritten, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding index entry for %s: %w", name, err)
		}
		lines[i] = rewritten
		found = true
		break
	}
	if !found {
		return fmt.Errorf("version %s of %s not found in index", vers, name)
	}

	if err := os.WriteFile(abs, bytes.Join(lines, []byte("\n")), 0o644); err != nil {
		return fmt.Errorf("writing index file for %s: %w", name, err)
	}

	verb := "Yanking"
	if !yanked {
		verb = "Unyanking"
	}
	return x.commitAndPush(ctx, rel, fmt.Sprintf("%s crate `%s#%s`", verb, name, vers))
}

// commitAndPush stages rel, commits, and pushes to the remote. A
// rejected push means another writer moved the branch: rebase our
// commit onto the remote and retry under exponential backoff.
func (x *Index) commitAndPush(ctx context.Context, rel, message string) error {
	if _, err := x.git(ctx, "add", rel); err != nil {
		return err
	}
	if _, err := x.git(ctx, "commit", "-m", message); err != nil {
		return err
	}

	push := func() error {
		if _, err := x.git(ctx, "push", "origin", "HEAD:"+x.branch); err == nil {
			return nil
		}
		if _, err := x.git(ctx, "pull", "--rebase", "origin", x.branch); err != nil {
			return backoff.Permanent(err)
		}
		_, err := x.git(ctx, "push", "origin", "HEAD:"+x.branch)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(push, policy); err != nil {
		return fmt.Errorf("pushing index commit %q: %w", message, err)
	}
	return nil
}

// git executes a git command targeting the index checkout and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (x *Index) git(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", x.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), x.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
