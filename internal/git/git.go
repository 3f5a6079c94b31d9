package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client provides git operations for fetching the source repository
type Client interface {
	// Clone checks out the repository at the specified ref under workDir
	// and returns the path to the checkout
	Clone(ctx context.Context, url, ref, workDir string) (string, error)
}

// FetchError is returned when both clone strategies are exhausted
type FetchError struct {
	URL    string
	Ref    string
	Output string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch source repository %s at ref %s: %s", e.URL, e.Ref, e.Output)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ShellClient implements Client by shelling out to the git command
type ShellClient struct{}

// NewShellClient creates a new git client that uses the git command
func NewShellClient() *ShellClient {
	return &ShellClient{}
}

// Clone fetches url at ref into workDir/source_repo.
// Strategy:
// 1. Try a shallow single-ref clone directly at ref (works for branches and tags)
// 2. If that fails, shallow multi-branch clone followed by an explicit
//    depth-1 fetch and checkout of ref (works for commit SHAs and tags
//    that live on non-default branches)
// Each command runs once; the exit status is the sole success signal.
func (c *ShellClient) Clone(ctx context.Context, url, ref, workDir string) (string, error) {
	repoDir := filepath.Join(workDir, "source_repo")

	// Remove any leftover checkout so re-runs start clean
	if err := os.RemoveAll(repoDir); err != nil {
		return "", fmt.Errorf("failed to remove existing checkout: %w", err)
	}

	if _, err := c.run(ctx, "clone", "--depth", "1", "--branch", ref, url, repoDir); err == nil {
		return repoDir, nil
	}

	// The ref is not a branch or tag the remote advertises for single-ref
	// clones. Clone all branch tips shallowly, then fetch and check out the
	// ref explicitly.
	if err := os.RemoveAll(repoDir); err != nil {
		return "", fmt.Errorf("failed to remove existing checkout: %w", err)
	}

	if out, err := c.run(ctx, "clone", "--depth", "1", "--no-single-branch", url, repoDir); err != nil {
		return "", &FetchError{URL: url, Ref: ref, Output: out, Err: err}
	}
	if out, err := c.run(ctx, "-C", repoDir, "fetch", "--depth", "1", "origin", ref); err != nil {
		return "", &FetchError{URL: url, Ref: ref, Output: out, Err: err}
	}
	if out, err := c.run(ctx, "-C", repoDir, "checkout", ref); err != nil {
		return "", &FetchError{URL: url, Ref: ref, Output: out, Err: err}
	}

	return repoDir, nil
}

// run executes git with the given arguments and returns its combined
// output, trimmed
func (c *ShellClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))
	if err != nil {
		return out, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}
