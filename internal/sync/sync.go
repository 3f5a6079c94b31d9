package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/precommit-tools/sync-files/internal/config"
	"github.com/precommit-tools/sync-files/internal/git"
)

// Engine orchestrates the check/write reconciliation run
type Engine struct {
	cfg      *config.Config
	git      git.Client
	logger   *slog.Logger
	repoRoot string
	write    bool
}

// NewEngine creates a new sync engine. repoRoot is the root of the consuming
// repository; write forces write mode regardless of the configured mode.
func NewEngine(cfg *config.Config, gitClient git.Client, logger *slog.Logger, repoRoot string, write bool) *Engine {
	return &Engine{
		cfg:      cfg,
		git:      gitClient,
		logger:   logger,
		repoRoot: repoRoot,
		write:    write,
	}
}

// mismatch records one differing file pair until reconciliation consumes it
type mismatch struct {
	srcPath string // resolved path in the fetched checkout
	dst     string // relative path in the consuming repository
	reason  string
}

// Run executes the complete sync. It returns the ordered lists of errors and
// warnings to render; err is non-nil only for fatal failures (scratch
// directory, source fetch) that abort the run before per-file processing.
func (e *Engine) Run(ctx context.Context) ([]string, []string, error) {
	e.logger.Info("starting sync",
		"repo", e.cfg.Source.Repo,
		"ref", e.cfg.Source.Ref,
		"write", e.writeEnabled())

	workDir, err := os.MkdirTemp("", "sync-files-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	e.logger.Info("fetching source repository", "dest", workDir)
	checkout, err := e.git.Clone(ctx, e.cfg.Source.Repo, e.cfg.Source.Ref, workDir)
	if err != nil {
		return nil, nil, err
	}

	mismatches := e.collectMismatches(checkout)
	e.logger.Info("comparison complete",
		"files", len(e.cfg.Files),
		"mismatches", len(mismatches))

	if len(mismatches) == 0 {
		return nil, nil, nil
	}

	if e.writeEnabled() {
		return e.applyMismatches(mismatches)
	}

	errs := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		errs = append(errs, fmt.Sprintf("%s: %s", m.dst, m.reason))
	}
	return errs, nil, nil
}

// collectMismatches compares every mapped file in config order. A hard
// comparison failure becomes the mismatch reason so the run still reports
// the complete file list.
func (e *Engine) collectMismatches(checkout string) []mismatch {
	var mismatches []mismatch
	for _, fm := range e.cfg.Files {
		srcPath := filepath.Join(checkout, fm.Src)
		dstPath := filepath.Join(e.repoRoot, fm.Dst)

		equal, reason, err := Compare(srcPath, dstPath)
		if err != nil {
			mismatches = append(mismatches, mismatch{srcPath: srcPath, dst: fm.Dst, reason: err.Error()})
			continue
		}
		if !equal {
			mismatches = append(mismatches, mismatch{srcPath: srcPath, dst: fm.Dst, reason: reason})
		}
	}
	return mismatches
}

// applyMismatches copies every mismatched file onto its destination. Each
// file is independent: a failed copy contributes one error and the loop
// continues; already-copied files are not rolled back.
func (e *Engine) applyMismatches(mismatches []mismatch) ([]string, []string, error) {
	var errs, warnings []string
	for _, m := range mismatches {
		dstPath := filepath.Join(e.repoRoot, m.dst)
		e.logger.Info("syncing file", "dest", m.dst, "reason", m.reason)
		if err := copyFile(m.srcPath, dstPath); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		warnings = append(warnings, fmt.Sprintf("Synced %s: %s", m.dst, m.reason))
	}
	return errs, warnings, nil
}

// writeEnabled reports the effective write decision: the caller override or
// the configured mode.
func (e *Engine) writeEnabled() bool {
	return e.write || e.cfg.Options.Mode == config.ModeWrite
}

// copyFile copies src onto dst with an atomic write, preserving the file
// mode and modification time and creating missing parent directories
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}
	defer func() {
		_ = srcFile.Close()
	}()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".sync-files-tmp-*")
	if err != nil {
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}

	srcInfo, err := srcFile.Stat()
	if err != nil {
		_ = tmpFile.Close()
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}

	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		_ = tmpFile.Close()
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}

	if err := tmpFile.Close(); err != nil {
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return &CompareError{Op: "copy", Path: dst, Err: err}
	}

	// Best effort, matching how the mode was carried over above
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())

	return nil
}
