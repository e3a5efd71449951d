// Package resolver maps a validated request path to a file under the
// document root (C4), applying the directory→index.html fallback and the
// canonical-path jail check that rejects path escapes.
package resolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Status classifies the outcome of Open beyond a plain success/failure
// boolean: the original's four resolver statuses (OK, not found,
// insufficient permissions, overload) plus a separate path-escape status.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusInsufficientPermissions
	StatusOverload
	StatusPathEscape
)

// Resolved carries the open file handle and metadata C5 needs to stream a
// response body. Callers must Close the File once the response has been
// written.
type Resolved struct {
	File          *os.File
	Size          int64
	CanonicalPath string
}

// Open resolves reqPath under canonicalRoot, which must already be an
// absolute, symlink-resolved path (the config loader produces it once at
// startup). reqPath is joined textually; no URL-decoding happens at this
// layer, matching the original resolver's contract.
func Open(canonicalRoot, reqPath string) (*Resolved, Status) {
	joined := filepath.Join(canonicalRoot, filepath.FromSlash(reqPath))

	f, status := openClassified(joined)
	if status != StatusOK {
		return nil, status
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, StatusNotFound
	}

	if info.IsDir() {
		f.Close()
		indexPath := filepath.Join(joined, "index.html")
		f, status = openClassified(indexPath)
		if status != StatusOK {
			return nil, status
		}
		info, err = f.Stat()
		if err != nil || info.IsDir() {
			f.Close()
			return nil, StatusNotFound
		}
		joined = indexPath
	}

	canonical, err := filepath.EvalSymlinks(joined)
	if err != nil {
		f.Close()
		return nil, StatusPathEscape
	}
	if !withinRoot(canonicalRoot, canonical) {
		f.Close()
		return nil, StatusPathEscape
	}

	return &Resolved{File: f, Size: info.Size(), CanonicalPath: canonical}, StatusOK
}

func openClassified(path string) (*os.File, Status) {
	f, err := os.Open(path)
	if err == nil {
		return f, StatusOK
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return nil, StatusInsufficientPermissions
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return nil, StatusOverload
	default:
		return nil, StatusNotFound
	}
}

// withinRoot reports whether candidate is root itself or a path beneath
// it, guarding against the string-prefix trap where "/srv/www-evil" would
// otherwise pass a naive strings.HasPrefix(candidate, "/srv/www") check.
func withinRoot(root, candidate string) bool {
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}
