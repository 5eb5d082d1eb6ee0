package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type DeviceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, device *types.Device) error
	// GetByDeviceID resolves the hardware identifier. With lock set the row is
	// held FOR UPDATE for the duration of the surrounding transaction.
	GetByDeviceID(ctx context.Context, tx *gorm.DB, deviceID string, lock bool) (*types.Device, error)
	// GetPendingByCode finds the device currently holding the exact pairing
	// code in the pending state.
	GetPendingByCode(ctx context.Context, tx *gorm.DB, code string, lock bool) (*types.Device, error)
	GetPairedByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lock bool) (*types.Device, error)
	Save(ctx context.Context, tx *gorm.DB, device *types.Device) error
	Delete(ctx context.Context, tx *gorm.DB, deviceID string) error
	List(ctx context.Context, tx *gorm.DB) ([]*types.Device, error)
}

type deviceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeviceRepo(db *gorm.DB, baseLog *logger.Logger) DeviceRepo {
	return &deviceRepo{db: db, log: baseLog.With("repo", "DeviceRepo")}
}

func (dr *deviceRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return dr.db
}

func (dr *deviceRepo) Create(ctx context.Context, tx *gorm.DB, device *types.Device) error {
	return dr.conn(tx).WithContext(ctx).Create(device).Error
}

func (dr *deviceRepo) GetByDeviceID(ctx context.Context, tx *gorm.DB, deviceID string, lock bool) (*types.Device, error) {
	q := dr.conn(tx).WithContext(ctx)
	if lock {
		q = forUpdate(q)
	}
	var device types.Device
	err := q.Where("device_id = ?", deviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (dr *deviceRepo) GetPendingByCode(ctx context.Context, tx *gorm.DB, code string, lock bool) (*types.Device, error) {
	q := dr.conn(tx).WithContext(ctx)
	if lock {
		q = forUpdate(q)
	}
	var device types.Device
	err := q.Where("pairing_code = ? AND state = ?", code, types.StatePendingPairing).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (dr *deviceRepo) GetPairedByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lock bool) (*types.Device, error) {
	q := dr.conn(tx).WithContext(ctx)
	if lock {
		q = forUpdate(q)
	}
	var device types.Device
	err := q.Where("user_id = ? AND state = ?", userID, types.StatePaired).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (dr *deviceRepo) Save(ctx context.Context, tx *gorm.DB, device *types.Device) error {
	return dr.conn(tx).WithContext(ctx).Save(device).Error
}

func (dr *deviceRepo) Delete(ctx context.Context, tx *gorm.DB, deviceID string) error {
	res := dr.conn(tx).WithContext(ctx).Where("device_id = ?", deviceID).Delete(&types.Device{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrDeviceNotFound
	}
	return nil
}

func (dr *deviceRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Device, error) {
	var results []*types.Device
	if err := dr.conn(tx).WithContext(ctx).
		Preload("User").
		Order("created_at asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
