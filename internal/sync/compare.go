package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Mismatch reasons reported by Compare
const (
	reasonSourceMissing      = "source missing"
	reasonDestinationMissing = "destination missing"
	reasonContentDiffers     = "content differs"
)

// CompareError is returned when a tracked file cannot be read or written
type CompareError struct {
	Op   string
	Path string
	Err  error
}

func (e *CompareError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CompareError) Unwrap() error { return e.Err }

// Compare reports whether srcPath and dstPath have identical content by
// comparing SHA256 digests of their raw bytes. When the files differ, reason
// describes why. A read failure is returned as an error, never folded into
// the equality result.
func Compare(srcPath, dstPath string) (bool, string, error) {
	if _, err := os.Stat(srcPath); err != nil {
		if os.IsNotExist(err) {
			return false, reasonSourceMissing, nil
		}
		return false, "", &CompareError{Op: "stat", Path: srcPath, Err: err}
	}
	if _, err := os.Stat(dstPath); err != nil {
		if os.IsNotExist(err) {
			return false, reasonDestinationMissing, nil
		}
		return false, "", &CompareError{Op: "stat", Path: dstPath, Err: err}
	}

	srcHash, err := fileHash(srcPath)
	if err != nil {
		return false, "", err
	}
	dstHash, err := fileHash(dstPath)
	if err != nil {
		return false, "", err
	}

	if srcHash == dstHash {
		return true, "", nil
	}
	return false, reasonContentDiffers, nil
}

// fileHash computes the SHA256 hash of the file content
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &CompareError{Op: "read", Path: path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &CompareError{Op: "read", Path: path, Err: err}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
