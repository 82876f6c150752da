package diffstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/reviewboard/rbdiff/internal/diffparser"
)

// timeFormat is fixed width so created_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrDiffSetNotFound is returned when an operation targets a missing diff set.
var ErrDiffSetNotFound = errors.New("diff set not found")

// DiffSet is one stored parse: the preamble plus its file diffs.
type DiffSet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	Preamble    []byte    `json:"preamble"`
	FileCount   int       `json:"fileCount"`
	InsertTotal int       `json:"insertTotal"`
	DeleteTotal int       `json:"deleteTotal"`
}

// FileDiff is a stored file change. Position keeps the order of the
// sections in the source diff.
type FileDiff struct {
	DiffSetID string `json:"diffSetId"`
	Position  int    `json:"position"`
	diffparser.FileChange
}

// Store persists diff sets in SQLite. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path and applies any pending
// schema migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	slog.Debug("[DEBUG-STORE] opening database", "path", path)

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	slog.Debug("[DEBUG-STORE] database ready", "schemaVersion", currentSchemaVersion)
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDiffSet stores res under a new diff set ID in a single transaction.
func (s *Store) SaveDiffSet(ctx context.Context, name string, res *diffparser.Result) (DiffSet, error) {
	if res == nil {
		return DiffSet{}, errors.New("result cannot be nil")
	}

	ds := DiffSet{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Preamble:  nonNil(res.Preamble),
		FileCount: len(res.Files),
	}
	for _, fc := range res.Files {
		ds.InsertTotal += fc.InsertCount
		ds.DeleteTotal += fc.DeleteCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DiffSet{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insertSet = `
		INSERT INTO diffsets
			(id, name, created_at, preamble, file_count, insert_total, delete_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insertSet,
		ds.ID, ds.Name, ds.CreatedAt.Format(timeFormat), ds.Preamble,
		ds.FileCount, ds.InsertTotal, ds.DeleteTotal,
	); err != nil {
		return DiffSet{}, fmt.Errorf("insert diff set: %w", err)
	}

	const insertFile = `
		INSERT INTO filediffs
			(diffset_id, position, orig_path, new_path, orig_revision, new_revision,
			 old_mode, new_mode, similarity, header, data,
			 is_new, is_deleted, is_moved, is_copied, is_binary, is_mode_change_only,
			 insert_count, delete_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertFile)
	if err != nil {
		return DiffSet{}, fmt.Errorf("prepare file diff insert: %w", err)
	}
	defer stmt.Close()

	for i, fc := range res.Files {
		if _, err := stmt.ExecContext(ctx,
			ds.ID, i, fc.OrigPath, fc.NewPath, fc.OrigRevision, fc.NewRevision,
			fc.OldMode, fc.NewMode, fc.Similarity, nonNil(fc.Header), nonNil(fc.Data),
			fc.IsNew, fc.IsDeleted, fc.IsMoved, fc.IsCopied, fc.IsBinary, fc.IsModeChangeOnly,
			fc.InsertCount, fc.DeleteCount,
		); err != nil {
			return DiffSet{}, fmt.Errorf("insert file diff %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return DiffSet{}, fmt.Errorf("commit diff set: %w", err)
	}
	slog.Debug("[DEBUG-STORE] saved diff set", "id", ds.ID, "name", ds.Name, "files", ds.FileCount)
	return ds, nil
}

const selectDiffSet = `
	SELECT id, name, created_at, preamble, file_count, insert_total, delete_total
	FROM diffsets
`

// GetDiffSet returns the diff set with the given ID.
func (s *Store) GetDiffSet(ctx context.Context, id string) (DiffSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectDiffSet+" WHERE id = ?", id)
	ds, err := scanDiffSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DiffSet{}, fmt.Errorf("%s: %w", id, ErrDiffSetNotFound)
	}
	if err != nil {
		return DiffSet{}, fmt.Errorf("get diff set: %w", err)
	}
	return ds, nil
}

// ListDiffSets returns all diff sets, newest first.
func (s *Store) ListDiffSets(ctx context.Context) ([]DiffSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectDiffSet+" ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list diff sets: %w", err)
	}
	defer rows.Close()

	var sets []DiffSet
	for rows.Next() {
		ds, err := scanDiffSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diff set: %w", err)
		}
		sets = append(sets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diff sets: %w", err)
	}
	return sets, nil
}

// FileDiffs returns the file diffs of a diff set in their original order.
func (s *Store) FileDiffs(ctx context.Context, id string) ([]FileDiff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM diffsets WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrDiffSetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check diff set: %w", err)
	}

	const query = `
		SELECT diffset_id, position, orig_path, new_path, orig_revision, new_revision,
		       old_mode, new_mode, similarity, header, data,
		       is_new, is_deleted, is_moved, is_copied, is_binary, is_mode_change_only,
		       insert_count, delete_count
		FROM filediffs
		WHERE diffset_id = ?
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query file diffs: %w", err)
	}
	defer rows.Close()

	var files []FileDiff
	for rows.Next() {
		var fd FileDiff
		if err := rows.Scan(
			&fd.DiffSetID, &fd.Position, &fd.OrigPath, &fd.NewPath, &fd.OrigRevision, &fd.NewRevision,
			&fd.OldMode, &fd.NewMode, &fd.Similarity, &fd.Header, &fd.Data,
			&fd.IsNew, &fd.IsDeleted, &fd.IsMoved, &fd.IsCopied, &fd.IsBinary, &fd.IsModeChangeOnly,
			&fd.InsertCount, &fd.DeleteCount,
		); err != nil {
			return nil, fmt.Errorf("scan file diff: %w", err)
		}
		fd.Header = nonNil(fd.Header)
		fd.Data = nonNil(fd.Data)
		files = append(files, fd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file diffs: %w", err)
	}
	return files, nil
}

// Result rebuilds the parse result stored under id.
func (s *Store) Result(ctx context.Context, id string) (*diffparser.Result, error) {
	ds, err := s.GetDiffSet(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.FileDiffs(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &diffparser.Result{Preamble: ds.Preamble, Files: make([]diffparser.FileChange, 0, len(files))}
	for _, fd := range files {
		res.Files = append(res.Files, fd.FileChange)
	}
	return res, nil
}

// DeleteDiffSet removes a diff set and, through the foreign key cascade,
// its file diffs.
func (s *Store) DeleteDiffSet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM diffsets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete diff set: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete diff set: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrDiffSetNotFound)
	}
	slog.Debug("[DEBUG-STORE] deleted diff set", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiffSet(r rowScanner) (DiffSet, error) {
	var ds DiffSet
	var createdAt string
	if err := r.Scan(&ds.ID, &ds.Name, &createdAt, &ds.Preamble, &ds.FileCount, &ds.InsertTotal, &ds.DeleteTotal); err != nil {
		return DiffSet{}, err
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return DiffSet{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	ds.CreatedAt = t
	ds.Preamble = nonNil(ds.Preamble)
	return ds, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
