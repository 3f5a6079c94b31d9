package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFindRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok := FindRepoRoot(nested, DefaultMaxDepth)
	if !ok {
		t.Fatal("expected repo root to be found")
	}
	if got != root {
		t.Errorf("expected %s, got %s", root, got)
	}
}

func TestFindRepoRoot_DepthBound(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c", "d")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	// The root is five levels up; a walk bounded to two must give up.
	if _, ok := FindRepoRoot(nested, 2); ok {
		t.Error("expected bounded walk to miss the repo root")
	}
}

func TestVersion_ExactTag(t *testing.T) {
	ctx := context.Background()

	repoDir := t.TempDir()
	initRepo(t, repoDir, "main")
	commitFile(t, repoDir, "file.txt", "content\n", "Initial commit")
	gitRun(t, repoDir, "tag", "v1.2.3")

	got, ok := Version(ctx, repoDir)
	if !ok {
		t.Fatal("expected a version")
	}
	if got != "v1.2.3" {
		t.Errorf("expected v1.2.3, got %s", got)
	}
}

func TestVersion_NearestAncestorTag(t *testing.T) {
	ctx := context.Background()

	repoDir := t.TempDir()
	initRepo(t, repoDir, "main")
	commitFile(t, repoDir, "file.txt", "v1\n", "Initial commit")
	gitRun(t, repoDir, "tag", "v1.0.0")
	commitFile(t, repoDir, "file.txt", "v2\n", "Untagged commit")

	got, ok := Version(ctx, repoDir)
	if !ok {
		t.Fatal("expected a version")
	}
	if got != "v1.0.0" {
		t.Errorf("expected nearest ancestor tag v1.0.0, got %s", got)
	}
}

func TestVersion_NoTags(t *testing.T) {
	ctx := context.Background()

	repoDir := t.TempDir()
	initRepo(t, repoDir, "main")
	commitFile(t, repoDir, "file.txt", "content\n", "Initial commit")

	if got, ok := Version(ctx, repoDir); ok {
		t.Errorf("expected no version, got %s", got)
	}
}

func TestVersion_NotARepo(t *testing.T) {
	if got, ok := Version(context.Background(), t.TempDir()); ok {
		t.Errorf("expected no version outside a repository, got %s", got)
	}
}

func TestFirstVersionTag(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{name: "prefers v prefix", tags: []string{"release-1", "v1.0.0"}, want: "v1.0.0"},
		{name: "first tag otherwise", tags: []string{"release-1", "release-2"}, want: "release-1"},
		{name: "skips empty lines", tags: []string{"", "  ", "v2.0.0"}, want: "v2.0.0"},
		{name: "no tags", tags: nil, want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstVersionTag(tc.tags); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSelfVersion(t *testing.T) {
	ctx := context.Background()

	repoDir := t.TempDir()
	initRepo(t, repoDir, "main")
	commitFile(t, repoDir, "file.txt", "content\n", "Initial commit")
	gitRun(t, repoDir, "tag", "v0.3.0")

	nested := filepath.Join(repoDir, "bin", "hooks")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok := SelfVersion(ctx, nested)
	if !ok {
		t.Fatal("expected self version to resolve")
	}
	if got != "v0.3.0" {
		t.Errorf("expected v0.3.0, got %s", got)
	}
}
