package repository

import (
	"context"
	"errors"
	"h2ala_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormSlotStore struct {
	DB *gorm.DB
}

func NewGormSlotStore(db *gorm.DB) *GormSlotStore {
	return &GormSlotStore{DB: db}
}

func (r *GormSlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	var slot model.StateSlot
	err := r.DB.WithContext(ctx).First(&slot, "slot_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return slot.Value, true, nil
}

func (r *GormSlotStore) Set(ctx context.Context, key, value string) error {
	slot := model.StateSlot{Key: key, Value: value}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&slot).Error
}
