package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
)

// ErrPassNotFound is returned when no live pass has the requested ID.
var ErrPassNotFound = errors.New("pass not found")

// DefaultListLimit caps List when no limit criterion is given.
const DefaultListLimit = 20

// PassRepository implements models.Repository[*models.PassRecord] for sync pass history.
//
// Track-level events are stored alongside each pass in track_events.
type PassRepository struct {
	db *sql.DB
}

// NewPassRepository creates a new PassRepository with the given database connection
func NewPassRepository(db *sql.DB) *PassRepository {
	return &PassRepository{db: db}
}

// Create inserts a pass and its events with a generated sequence. An ID is generated when the record has none.
func (r *PassRepository) Create(pass *models.PassRecord) error {
	return r.RecordPass(context.Background(), pass)
}

// RecordPass persists the outcome of a sync pass; it satisfies tasks.HistoryRecorder.
func (r *PassRepository) RecordPass(ctx context.Context, pass *models.PassRecord) error {
	if pass.ID() == "" {
		pass.SetID(shared.GenerateID())
	}

	if err := pass.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "passes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	counts := pass.Counts()
	query := `
		INSERT INTO passes (id, sequence, playlist, fetched, failed, deleted, artifacts, error_message, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		pass.ID(),
		sequence,
		pass.Playlist(),
		counts.Fetched,
		counts.Failed,
		counts.Deleted,
		counts.Artifacts,
		nullString(pass.ErrorMessage()),
		pass.StartedAt(),
		pass.FinishedAt(),
		pass.CreatedAt(),
		pass.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pass: %w", err)
	}

	for _, e := range pass.Events() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO track_events (pass_id, kind, name, detail, created_at) VALUES (?, ?, ?, ?, ?)",
			pass.ID(), string(e.Kind), e.Name, nullString(e.Detail), pass.CreatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert track event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pass: %w", err)
	}
	pass.SetSequence(sequence)
	return nil
}

// Get retrieves a pass by ID, excluding soft-deleted passes. Events are loaded with it.
func (r *PassRepository) Get(id string) (*models.PassRecord, error) {
	query := `
		SELECT id, sequence, playlist, fetched, failed, deleted, artifacts, error_message, started_at, finished_at, created_at, updated_at, deleted_at
		FROM passes
		WHERE id = ? AND deleted_at IS NULL
	`

	pass, err := scanPass(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPassNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadEvents(pass); err != nil {
		return nil, err
	}
	return pass, nil
}

// Update rewrites the counters, error message and finish time of an existing pass
func (r *PassRepository) Update(pass *models.PassRecord) error {
	if err := pass.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	pass.SetUpdatedAt(now)

	counts := pass.Counts()
	query := `
		UPDATE passes
		SET fetched = ?, failed = ?, deleted = ?, artifacts = ?, error_message = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		counts.Fetched,
		counts.Failed,
		counts.Deleted,
		counts.Artifacts,
		nullString(pass.ErrorMessage()),
		pass.FinishedAt(),
		now,
		pass.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update pass: %w", err)
	}

	return requireRow(result, pass.ID())
}

// Delete soft-deletes a pass by ID
func (r *PassRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE passes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}

	return requireRow(result, id)
}

// List retrieves recent passes, newest first, excluding soft-deleted passes.
//
// Supported criteria: "playlist" (string) and "limit" (int, defaults to [DefaultListLimit]).
// Events are not loaded; use [PassRepository.Events] for that.
func (r *PassRepository) List(criteria map[string]any) ([]*models.PassRecord, error) {
	query := `
		SELECT id, sequence, playlist, fetched, failed, deleted, artifacts, error_message, started_at, finished_at, created_at, updated_at, deleted_at
		FROM passes
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if playlist, ok := criteria["playlist"].(string); ok && playlist != "" {
		query += " AND playlist = ?"
		args = append(args, playlist)
	}

	limit := DefaultListLimit
	if l, ok := criteria["limit"].(int); ok && l > 0 {
		limit = l
	}
	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []*models.PassRecord
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, pass)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return passes, nil
}

// Events returns the track-level events of a pass in insertion order.
func (r *PassRepository) Events(passID string) ([]models.PassEvent, error) {
	rows, err := r.db.Query("SELECT kind, name, detail FROM track_events WHERE pass_id = ? ORDER BY id ASC", passID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track events: %w", err)
	}
	defer rows.Close()

	var events []models.PassEvent
	for rows.Next() {
		var (
			kind, name string
			detail     sql.NullString
		)
		if err := rows.Scan(&kind, &name, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan track event: %w", err)
		}
		events = append(events, models.PassEvent{Kind: models.EventKind(kind), Name: name, Detail: detail.String})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PassRepository) loadEvents(pass *models.PassRecord) error {
	events, err := r.Events(pass.ID())
	if err != nil {
		return err
	}
	for _, e := range events {
		pass.AddEvent(e.Kind, e.Name, e.Detail)
	}
	return nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPass scans a single row into a [models.PassRecord]
func scanPass(row rowScanner) (*models.PassRecord, error) {
	var (
		id           string
		sequence     int
		playlist     string
		counts       models.PassCounts
		errorMessage sql.NullString
		startedAt    time.Time
		finishedAt   time.Time
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &playlist, &counts.Fetched, &counts.Failed, &counts.Deleted, &counts.Artifacts,
		&errorMessage, &startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pass: %w", err)
	}

	pass := models.NewPassRecord(sequence, playlist, counts, startedAt, finishedAt, errorMessage.String)
	pass.SetID(id)
	pass.SetCreatedAt(createdAt)
	pass.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		pass.SetDeletedAt(&deletedAt.Time)
	}

	return pass, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrPassNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ models.Repository[*models.PassRecord] = (*PassRepository)(nil)
