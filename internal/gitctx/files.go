package gitctx

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/reviewboard/rbdiff/internal/diffparser"
)

// Head names the tip of the current branch. A file at Head is looked up by
// path; any other revision must be a full blob ID.
const Head = "HEAD"

var (
	// ErrInvalidRevision is returned for a revision that is not a full
	// object ID, which usually means the diff lacked --full-index.
	ErrInvalidRevision = errors.New("the SHA1 is too short; make sure the diff is generated with `git diff --full-index`")
	// ErrFileNotFound is returned when a file revision is not in the repository.
	ErrFileNotFound = errors.New("file not found in repository")
)

// ResolveRevision returns the object name git should look up for path at
// rev: "HEAD:<path>" for Head, the blob ID itself otherwise.
func ResolveRevision(path, rev string) (string, error) {
	if rev == Head {
		if path == "" {
			return "", fmt.Errorf("path must be supplied if revision is %s", Head)
		}
		return Head + ":" + path, nil
	}
	if !isObjectID(rev) {
		return "", fmt.Errorf("%q: %w", rev, ErrInvalidRevision)
	}
	return rev, nil
}

// isObjectID reports whether s is a full SHA-1 or SHA-256 object ID.
func isObjectID(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// GetFile returns the contents of path at rev. A PRE-CREATION revision has
// no prior contents and yields an empty file.
func GetFile(path, rev string) ([]byte, error) {
	if rev == diffparser.PreCreation {
		return []byte{}, nil
	}
	obj, err := ResolveRevision(path, rev)
	if err != nil {
		return nil, err
	}
	out, err := gitOutput("cat-file", "-p", obj)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s (%s): %w", path, rev, ErrFileNotFound)
		}
		return nil, fmt.Errorf("git cat-file %s: %w", obj, err)
	}
	return out, nil
}

// FileExists reports whether path at rev is present in the repository.
func FileExists(path, rev string) (bool, error) {
	if rev == diffparser.PreCreation {
		return false, nil
	}
	obj, err := ResolveRevision(path, rev)
	if err != nil {
		return false, err
	}
	if _, err := gitOutput("cat-file", "-e", obj); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("git cat-file %s: %w", obj, err)
	}
	return true, nil
}

// Verification statuses.
const (
	VerifyOK              = "ok"
	VerifyMissing         = "missing"
	VerifyInvalidRevision = "invalid-revision"
	VerifySkipped         = "skipped"
)

// Verification is the outcome of checking one file change's origin
// revision against the repository.
type Verification struct {
	Path     string `json:"path"`
	Revision string `json:"revision"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// VerifyChanges checks that the origin revision of every change exists in
// the repository. New files and changes without an origin revision (pure
// renames and copies) are skipped. The error is only set when git itself
// fails; missing files and short revisions are reported per change.
func VerifyChanges(files []diffparser.FileChange) ([]Verification, error) {
	out := make([]Verification, 0, len(files))
	for _, fc := range files {
		v := Verification{Path: fc.OrigPath, Revision: fc.OrigRevision}
		if v.Path == "" {
			v.Path = fc.NewPath
		}
		if fc.OrigRevision == "" || fc.OrigRevision == diffparser.PreCreation {
			v.Status = VerifySkipped
			out = append(out, v)
			continue
		}
		ok, err := FileExists(v.Path, fc.OrigRevision)
		switch {
		case errors.Is(err, ErrInvalidRevision):
			v.Status = VerifyInvalidRevision
			v.Error = err.Error()
		case err != nil:
			return nil, err
		case ok:
			v.Status = VerifyOK
		default:
			v.Status = VerifyMissing
		}
		out = append(out, v)
	}
	return out, nil
}
