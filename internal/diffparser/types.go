package diffparser

// PreCreation is the origin revision of a file that did not exist before
// the change.
const PreCreation = "PRE-CREATION"

// Change statuses returned by FileChange.Status.
const (
	StatusModified = "modified"
	StatusNew      = "new"
	StatusDeleted  = "deleted"
	StatusMoved    = "moved"
	StatusCopied   = "copied"
)

// FileChange is one file section of a diff.
type FileChange struct {
	OrigPath     string `json:"origPath"`
	NewPath      string `json:"newPath"`
	OrigRevision string `json:"origRevision"`
	NewRevision  string `json:"newRevision,omitempty"`
	OldMode      string `json:"oldMode,omitempty"`
	NewMode      string `json:"newMode,omitempty"`
	Similarity   string `json:"similarity,omitempty"`

	// Header holds the "diff --git" line, the extended header lines and the
	// ---/+++ pair, each terminated by a newline.
	Header []byte `json:"header"`
	// Data holds everything after the header up to the next section.
	Data []byte `json:"data"`

	IsNew            bool `json:"isNew"`
	IsDeleted        bool `json:"isDeleted"`
	IsMoved          bool `json:"isMoved"`
	IsCopied         bool `json:"isCopied"`
	IsBinary         bool `json:"isBinary"`
	IsModeChangeOnly bool `json:"isModeChangeOnly"`

	InsertCount int `json:"insertCount"`
	DeleteCount int `json:"deleteCount"`
}

// Status summarizes the flags as a single word.
func (f FileChange) Status() string {
	switch {
	case f.IsNew:
		return StatusNew
	case f.IsDeleted:
		return StatusDeleted
	case f.IsMoved:
		return StatusMoved
	case f.IsCopied:
		return StatusCopied
	default:
		return StatusModified
	}
}

// Path returns the destination path, or the origin path for deletions.
func (f FileChange) Path() string {
	if f.NewPath != "" && !f.IsDeleted {
		return f.NewPath
	}
	if f.OrigPath != "" {
		return f.OrigPath
	}
	return f.NewPath
}

// Result is the output of a single parse.
type Result struct {
	// Preamble is everything before the first file section (for example
	// the commit message in git format-patch output).
	Preamble []byte       `json:"preamble"`
	Files    []FileChange `json:"files"`
}

// Options tweaks parser behavior.
type Options struct {
	// KeepModeChanges emits sections whose only change is a file mode
	// change. By default they are dropped like any other empty section.
	KeepModeChanges bool `json:"keepModeChanges"`
}
