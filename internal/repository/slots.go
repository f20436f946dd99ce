package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SlotAccessor gives a content table uniform access to its file slots. Slot names
// map to whitelisted columns; anything else is rejected before touching SQL.
type SlotAccessor struct {
	db      *sqlx.DB
	table   string
	columns map[string]string
}

// GetSlot returns the storage key currently held by a slot ("" when empty).
func (s SlotAccessor) GetSlot(ctx context.Context, id, slot string) (string, error) {
	column, ok := s.columns[slot]
	if !ok {
		return "", fmt.Errorf("unknown slot %q on %s", slot, s.table)
	}
	query := fmt.Sprintf(`SELECT COALESCE(%s, '') FROM %s WHERE id = $1`, column, s.table)
	var key string
	if err := s.db.GetContext(ctx, &key, query, id); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("read slot %s.%s: %w", s.table, column, err)
	}
	return key, nil
}

// SetSlot writes a storage key into a slot (empty string clears it).
func (s SlotAccessor) SetSlot(ctx context.Context, id, slot, key string) error {
	column, ok := s.columns[slot]
	if !ok {
		return fmt.Errorf("unknown slot %q on %s", slot, s.table)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, updated_at = $3 WHERE id = $1`, s.table, column)
	if _, err := s.db.ExecContext(ctx, query, id, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("write slot %s.%s: %w", s.table, column, err)
	}
	return nil
}
