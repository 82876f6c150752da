package review

import "testing"

func TestComputeSummary(t *testing.T) {
	files := []FileEntry{
		{Status: "modified", Insertions: 3, Deletions: 1, Hunks: 2},
		{Status: "new", Insertions: 10, Hunks: 1},
		{Status: "deleted", Deletions: 4, Hunks: 1},
		{Status: "moved"},
		{Status: "copied", Insertions: 1, Hunks: 1},
		{Status: "modified", IsBinary: true},
		{Status: "modified", IsModeChangeOnly: true},
	}
	s := ComputeSummary(files)
	if s.Files != 7 {
		t.Errorf("Files = %d, want 7", s.Files)
	}
	want := StatusCounts{Modified: 3, New: 1, Deleted: 1, Moved: 1, Copied: 1}
	if s.Counts != want {
		t.Errorf("Counts = %+v, want %+v", s.Counts, want)
	}
	if s.Binary != 1 {
		t.Errorf("Binary = %d, want 1", s.Binary)
	}
	if s.ModeChanges != 1 {
		t.Errorf("ModeChanges = %d, want 1", s.ModeChanges)
	}
	if s.Insertions != 14 || s.Deletions != 5 {
		t.Errorf("Insertions/Deletions = %d/%d, want 14/5", s.Insertions, s.Deletions)
	}
	if s.Hunks != 5 {
		t.Errorf("Hunks = %d, want 5", s.Hunks)
	}
}

func TestComputeSummary_Empty(t *testing.T) {
	s := ComputeSummary(nil)
	if s != (Summary{}) {
		t.Errorf("ComputeSummary(nil) = %+v, want zero", s)
	}
}

func TestFileEntryPath(t *testing.T) {
	tests := []struct {
		entry FileEntry
		want  string
	}{
		{FileEntry{OrigPath: "a", NewPath: "b", Status: "moved"}, "b"},
		{FileEntry{OrigPath: "gone", NewPath: "gone", Status: "deleted"}, "gone"},
		{FileEntry{OrigPath: "gone", Status: "deleted"}, "gone"},
		{FileEntry{NewPath: "fresh", Status: "new"}, "fresh"},
	}
	for _, tt := range tests {
		if got := tt.entry.Path(); got != tt.want {
			t.Errorf("%+v.Path() = %q, want %q", tt.entry, got, tt.want)
		}
	}
}
