package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/shopkit/backend/internal/domain/shared"
)

// metaStore implements the meta half of the adapter contract once for all
// entity kinds. Values are stored JSON-encoded; round-tripped numbers come
// back as float64, which the meta overlay's deep-equal diffing tolerates.
type metaStore struct {
	db *gorm.DB
}

func (s *metaStore) readMeta(ctx context.Context, kind string, ownerID uint64) ([]shared.MetaRow, error) {
	var models []MetaRowModel
	err := s.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", kind, ownerID).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read meta for %s %d: %w", kind, ownerID, err)
	}

	rows := make([]shared.MetaRow, 0, len(models))
	for _, m := range models {
		var value any
		if m.MetaValue != "" {
			if err := json.Unmarshal([]byte(m.MetaValue), &value); err != nil {
				// Stored before JSON encoding was enforced; surface as raw text.
				value = m.MetaValue
			}
		}
		rows = append(rows, shared.MetaRow{ID: m.ID, Key: m.MetaKey, Value: value})
	}
	return rows, nil
}

func (s *metaStore) addMeta(ctx context.Context, kind string, ownerID uint64, key string, value any) (uint64, error) {
	encoded, err := encodeMetaValue(value)
	if err != nil {
		return 0, err
	}
	model := MetaRowModel{
		OwnerKind: kind,
		OwnerID:   ownerID,
		MetaKey:   key,
		MetaValue: encoded,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, fmt.Errorf("failed to add meta %q for %s %d: %w", key, kind, ownerID, err)
	}
	return model.ID, nil
}

func (s *metaStore) updateMeta(ctx context.Context, kind string, ownerID uint64, row shared.MetaRow) error {
	encoded, err := encodeMetaValue(row.Value)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&MetaRowModel{}).
		Where("id = ? AND owner_kind = ? AND owner_id = ?", row.ID, kind, ownerID).
		Updates(map[string]any{"meta_key": row.Key, "meta_value": encoded})
	if result.Error != nil {
		return fmt.Errorf("failed to update meta %d for %s %d: %w", row.ID, kind, ownerID, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *metaStore) deleteMeta(ctx context.Context, kind string, ownerID uint64, metaID uint64) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_kind = ? AND owner_id = ?", metaID, kind, ownerID).
		Delete(&MetaRowModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete meta %d for %s %d: %w", metaID, kind, ownerID, err)
	}
	return nil
}

// upsertMeta replaces the single row for a key, creating it when absent.
// Used for system-managed keys that must not accumulate duplicates.
func (s *metaStore) upsertMeta(ctx context.Context, kind string, ownerID uint64, key string, value any) error {
	encoded, err := encodeMetaValue(value)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&MetaRowModel{}).
		Where("owner_kind = ? AND owner_id = ? AND meta_key = ?", kind, ownerID, key).
		Update("meta_value", encoded)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert meta %q for %s %d: %w", key, kind, ownerID, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	_, err = s.addMeta(ctx, kind, ownerID, key, value)
	return err
}

func encodeMetaValue(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode meta value: %w", err)
	}
	return string(encoded), nil
}
