package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/tree"
)

// DraftModel is a row of the drafts table.
type DraftModel struct {
	Key        string
	UserID     string
	RecordID   string
	ValuesJSON string
	SavedAt    int64 // Unix milliseconds
}

func toDraftModel(d draft.Draft) (*DraftModel, error) {
	values, err := json.Marshal(d.Values)
	if err != nil {
		return nil, fmt.Errorf("encode draft values: %w", err)
	}
	return &DraftModel{
		Key:        d.Key.String(),
		UserID:     d.Key.UserID,
		RecordID:   d.Key.RecordID,
		ValuesJSON: string(values),
		SavedAt:    d.SavedAt.UnixMilli(),
	}, nil
}

func (m *DraftModel) toDomain() (draft.Draft, error) {
	var values tree.Tree
	if err := json.Unmarshal([]byte(m.ValuesJSON), &values); err != nil {
		return draft.Draft{}, fmt.Errorf("decode draft values: %w", err)
	}
	if values == nil {
		values = tree.Tree{}
	}
	return draft.Draft{
		Key:     draft.Key{UserID: m.UserID, RecordID: m.RecordID},
		Values:  values,
		SavedAt: time.UnixMilli(m.SavedAt),
	}, nil
}
