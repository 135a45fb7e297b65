package storage

import (
	"context"
	"database/sql"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/reconcile"
)

// SlotStore is a reconcile.SlotStore backed by the output_slots table.
type SlotStore struct {
	store *Store
	newID func() string
}

var _ reconcile.SlotStore = (*SlotStore)(nil)

// NewSlotStore returns a slot store on s. Fresh panel ids are ulids.
func NewSlotStore(s *Store) *SlotStore {
	return &SlotStore{store: s, newID: reconcile.NewPanelID}
}

// PanelID returns the panel id of output index under parentID, assigning
// one on first use. Concurrent callers agree on the stored id.
func (s *SlotStore) PanelID(ctx context.Context, parentID string, index int) (string, error) {
	if !s.store.usable() {
		return "", ErrStoreClosed
	}
	candidate := s.newID()

	var id string
	err := withRetry(func() error {
		if _, err := s.store.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO output_slots (parent_id, slot_index, panel_id) VALUES (?, ?, ?)`,
			parentID, index, candidate,
		); err != nil {
			return err
		}
		return s.store.db.QueryRowContext(ctx,
			`SELECT panel_id FROM output_slots WHERE parent_id = ? AND slot_index = ?`,
			parentID, index,
		).Scan(&id)
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageWrite, "assign output panel id").
			WithContext("parent", parentID).
			WithContext("index", index)
	}
	return id, nil
}

// Forget drops every slot of parentID.
func (s *SlotStore) Forget(ctx context.Context, parentID string) error {
	if !s.store.usable() {
		return ErrStoreClosed
	}
	err := withRetry(func() error {
		_, err := s.store.db.ExecContext(ctx, `DELETE FROM output_slots WHERE parent_id = ?`, parentID)
		return err
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "forget output slots").WithContext("parent", parentID)
	}
	return nil
}

// Slots returns the stored panel ids of parentID by index.
func (s *SlotStore) Slots(ctx context.Context, parentID string) (map[int]string, error) {
	if !s.store.usable() {
		return nil, ErrStoreClosed
	}
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT slot_index, panel_id FROM output_slots WHERE parent_id = ? ORDER BY slot_index`, parentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "list output slots").WithContext("parent", parentID)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			index int
			id    string
		)
		if err := rows.Scan(&index, &id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "scan output slot")
		}
		out[index] = id
	}
	if err := rows.Err(); err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "list output slots")
	}
	return out, nil
}
