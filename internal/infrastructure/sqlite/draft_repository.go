package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/depositform/internal/draft"
)

// draftRepository implements draft.Store on the drafts table.
type draftRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ draft.Store = (*draftRepository)(nil)

func newDraftRepository(db *sql.DB) *draftRepository {
	return &draftRepository{db: db, now: time.Now}
}

// Save upserts the draft for its key. A zero SavedAt is stamped with now.
func (r *draftRepository) Save(ctx context.Context, d draft.Draft) error {
	if d.SavedAt.IsZero() {
		d.SavedAt = r.now()
	}
	model, err := toDraftModel(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO drafts (draft_key, user_id, record_id, values_json, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (draft_key) DO UPDATE SET
			values_json = excluded.values_json,
			saved_at = excluded.saved_at`,
		model.Key, model.UserID, model.RecordID, model.ValuesJSON, model.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load returns the draft for k or draft.ErrNotFound.
func (r *draftRepository) Load(ctx context.Context, k draft.Key) (draft.Draft, error) {
	var m DraftModel
	err := r.db.QueryRowContext(ctx,
		`SELECT draft_key, user_id, record_id, values_json, saved_at FROM drafts WHERE draft_key = ?`,
		k.String(),
	).Scan(&m.Key, &m.UserID, &m.RecordID, &m.ValuesJSON, &m.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return draft.Draft{}, draft.ErrNotFound
	}
	if err != nil {
		return draft.Draft{}, fmt.Errorf("failed to load draft: %w", err)
	}
	return m.toDomain()
}

// Delete removes the draft for k. Deleting a missing draft is not an error.
func (r *draftRepository) Delete(ctx context.Context, k draft.Key) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE draft_key = ?`, k.String()); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
