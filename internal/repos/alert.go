package repos

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type AlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, alert *types.Alert) error
	// LockDedupWindow serializes concurrent evaluations of one (user, type)
	// for the rest of the transaction. A row lock cannot do this: when no
	// alert exists inside the window yet there is no row to lock, and two
	// transactions would both pass the window check and both insert.
	LockDedupWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, alertType types.AlertType) error
	// ExistsSince reports whether an alert of the given (user, type) was
	// created at or after the cutoff. Callers needing exclusion take
	// LockDedupWindow first.
	ExistsSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, alertType types.AlertType, cutoff time.Time) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Alert, error)
	GetByID(ctx context.Context, tx *gorm.DB, alertID, userID uuid.UUID) (*types.Alert, error)
	MarkRead(ctx context.Context, tx *gorm.DB, alertID, userID uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) (int64, error)
}

type alertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return &alertRepo{db: db, log: baseLog.With("repo", "AlertRepo")}
}

func (ar *alertRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *alertRepo) Create(ctx context.Context, tx *gorm.DB, alert *types.Alert) error {
	return ar.conn(tx).WithContext(ctx).Create(alert).Error
}

func (ar *alertRepo) LockDedupWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, alertType types.AlertType) error {
	h := fnv.New64a()
	h.Write(userID[:])
	h.Write([]byte(alertType))
	return advisoryLock(ctx, ar.conn(tx), int64(h.Sum64()))
}

func (ar *alertRepo) ExistsSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, alertType types.AlertType, cutoff time.Time) (bool, error) {
	var ids []uuid.UUID
	if err := ar.conn(tx).WithContext(ctx).Model(&types.Alert{}).
		Where("user_id = ? AND alert_type = ? AND created_at >= ?", userID, alertType, cutoff).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (ar *alertRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Alert, error) {
	var results []*types.Alert
	if err := ar.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *alertRepo) GetByID(ctx context.Context, tx *gorm.DB, alertID, userID uuid.UUID) (*types.Alert, error) {
	var alert types.Alert
	err := ar.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (ar *alertRepo) MarkRead(ctx context.Context, tx *gorm.DB, alertID, userID uuid.UUID, at time.Time) error {
	res := ar.conn(tx).WithContext(ctx).
		Model(&types.Alert{}).
		Where("id = ? AND user_id = ? AND is_read = ?", alertID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.Error
}

func (ar *alertRepo) MarkAllRead(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) (int64, error) {
	res := ar.conn(tx).WithContext(ctx).
		Model(&types.Alert{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
