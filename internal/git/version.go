package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultMaxDepth bounds the upward walk when searching for a repository root
const DefaultMaxDepth = 15

// FindRepoRoot walks upward from start through ancestor directories until a
// directory containing a .git entry is found or the filesystem root is
// reached. The walk visits at most maxDepth directories.
func FindRepoRoot(start string, maxDepth int) (string, bool) {
	current := start
	for depth := 0; depth < maxDepth; depth++ {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

// Version determines the version of the repository at repoDir using an
// ordered fallback:
// 1. exact tag at the current checkout head
// 2. nearest ancestor tag at head
// 3. any tag pointing exactly at the head commit, preferring one prefixed "v"
// Resolution is best-effort; every failure reports no version.
func Version(ctx context.Context, repoDir string) (string, bool) {
	if tag, ok := gitOutput(ctx, repoDir, "describe", "--tags", "--exact-match", "HEAD"); ok {
		return tag, true
	}
	if tag, ok := gitOutput(ctx, repoDir, "describe", "--tags", "--abbrev=0", "HEAD"); ok {
		return tag, true
	}

	sha, ok := gitOutput(ctx, repoDir, "rev-parse", "HEAD")
	if !ok {
		return "", false
	}
	out, ok := gitOutput(ctx, repoDir, "tag", "--points-at", sha)
	if !ok {
		return "", false
	}
	if tag := firstVersionTag(strings.Split(out, "\n")); tag != "" {
		return tag, true
	}
	return "", false
}

// SelfVersion resolves the release version of the repository enclosing
// startPath. It is used to detect whether the tool is running as an
// installed copy of itself, in which case the fetch ref is pinned to the
// tool's own release instead of the configured value.
func SelfVersion(ctx context.Context, startPath string) (string, bool) {
	root, ok := FindRepoRoot(startPath, DefaultMaxDepth)
	if !ok {
		return "", false
	}
	return Version(ctx, root)
}

// firstVersionTag returns the preferred tag from a list: the first tag
// prefixed "v" if any, otherwise the first non-empty tag.
func firstVersionTag(tags []string) string {
	first := ""
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if strings.HasPrefix(tag, "v") {
			return tag
		}
		if first == "" {
			first = tag
		}
	}
	return first
}

// gitOutput runs git in repoDir and returns its trimmed stdout. A non-zero
// exit, a missing git binary or empty output all report not-ok.
func gitOutput(ctx context.Context, repoDir string, args ...string) (string, bool) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoDir}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		return "", false
	}
	out := strings.TrimSpace(string(output))
	if out == "" {
		return "", false
	}
	return out, true
}
