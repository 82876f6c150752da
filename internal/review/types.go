package review

import "github.com/reviewboard/rbdiff/internal/diffparser"

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// InputInfo describes where the diff came from and how it was filtered.
type InputInfo struct {
	Mode            string   `json:"mode"`
	Range           string   `json:"range,omitempty"`
	DiffSetID       string   `json:"diffSetId,omitempty"`
	PathsIncluded   []string `json:"pathsIncluded,omitempty"`
	PathsExcluded   []string `json:"pathsExcluded,omitempty"`
	KeepModeChanges bool     `json:"keepModeChanges,omitempty"`
	Cached          bool     `json:"cached,omitempty"`
}

// FileEntry is the report view of one parsed file change.
type FileEntry struct {
	OrigPath         string `json:"origPath"`
	NewPath          string `json:"newPath"`
	OrigRevision     string `json:"origRevision"`
	NewRevision      string `json:"newRevision,omitempty"`
	Status           string `json:"status"`
	OldMode          string `json:"oldMode,omitempty"`
	NewMode          string `json:"newMode,omitempty"`
	Similarity       string `json:"similarity,omitempty"`
	IsBinary         bool   `json:"isBinary"`
	IsModeChangeOnly bool   `json:"isModeChangeOnly"`
	Insertions       int    `json:"insertions"`
	Deletions        int    `json:"deletions"`
	Hunks            int    `json:"hunks"`
	Header           string `json:"header"`
	Diff             string `json:"diff"`
	Redacted         bool   `json:"redacted,omitempty"`

	// RawDiff repeats the body bytes when they are not valid UTF-8. JSON
	// replaces invalid bytes in Diff with U+FFFD; RawDiff is encoded as
	// base64 and round-trips exactly.
	RawDiff []byte `json:"rawDiff,omitempty"`
}

// Path returns the path a reader would look the file up by.
func (f FileEntry) Path() string {
	if f.NewPath != "" && f.Status != diffparser.StatusDeleted {
		return f.NewPath
	}
	if f.OrigPath != "" {
		return f.OrigPath
	}
	return f.NewPath
}

// StatusCounts holds file counts by change status.
type StatusCounts struct {
	Modified int `json:"modified"`
	New      int `json:"new"`
	Deleted  int `json:"deleted"`
	Moved    int `json:"moved"`
	Copied   int `json:"copied"`
}

// Summary provides an overview of a parsed diff.
type Summary struct {
	Files       int          `json:"files"`
	Counts      StatusCounts `json:"counts"`
	Binary      int          `json:"binary"`
	ModeChanges int          `json:"modeChanges"`
	Insertions  int          `json:"insertions"`
	Deletions   int          `json:"deletions"`
	Hunks       int          `json:"hunks"`
}

// Timing contains performance metrics.
type Timing struct {
	ReadMs  int64 `json:"readMs"`
	ParseMs int64 `json:"parseMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool     string      `json:"tool"`
	Version  string      `json:"version"`
	RunID    string      `json:"runId"`
	Repo     RepoInfo    `json:"repo"`
	Inputs   InputInfo   `json:"inputs"`
	Preamble string      `json:"preamble,omitempty"`
	Summary  Summary     `json:"summary"`
	Files    []FileEntry `json:"files"`
	Timing   Timing      `json:"timing"`
}

// ComputeSummary calculates the summary from file entries.
func ComputeSummary(files []FileEntry) Summary {
	s := Summary{Files: len(files)}
	for _, f := range files {
		switch f.Status {
		case diffparser.StatusNew:
			s.Counts.New++
		case diffparser.StatusDeleted:
			s.Counts.Deleted++
		case diffparser.StatusMoved:
			s.Counts.Moved++
		case diffparser.StatusCopied:
			s.Counts.Copied++
		default:
			s.Counts.Modified++
		}
		if f.IsBinary {
			s.Binary++
		}
		if f.IsModeChangeOnly {
			s.ModeChanges++
		}
		s.Insertions += f.Insertions
		s.Deletions += f.Deletions
		s.Hunks += f.Hunks
	}
	return s
}
