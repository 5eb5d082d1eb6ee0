package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

// DeviceService owns the pairing lifecycle:
// unpaired -> pending_pairing (code issued) -> paired -> unpaired.
// Every transition runs under a row lock so two concurrent requests cannot
// double-pair a device or double-claim a code.
type DeviceService interface {
	// RegisterForPairing is called by the wristband on boot with a fresh
	// code. Unknown devices are created pending; known unpaired devices get
	// the new code; paired devices are left untouched and reported as such.
	RegisterForPairing(ctx context.Context, deviceID, code string) (*types.Device, bool, error)
	// ClaimPairing binds the device holding the code to the user. Codes are
	// single-use; one paired device per user.
	ClaimPairing(ctx context.Context, code string, userID uuid.UUID) (*types.Device, error)
	// Unpair releases a paired device. Valid only from the paired state.
	Unpair(ctx context.Context, deviceID string) (*types.Device, error)
	// UnpairByUser releases whichever device the user has paired.
	UnpairByUser(ctx context.Context, userID uuid.UUID) (*types.Device, error)
	Status(ctx context.Context, deviceID string) (*types.Device, error)
	MyDevice(ctx context.Context, userID uuid.UUID) (*types.Device, error)
	List(ctx context.Context) ([]*types.Device, error)
	Delete(ctx context.Context, deviceID string) error
}

type deviceService struct {
	db         *gorm.DB
	log        *logger.Logger
	deviceRepo repos.DeviceRepo
}

func NewDeviceService(db *gorm.DB, log *logger.Logger, deviceRepo repos.DeviceRepo) DeviceService {
	return &deviceService{
		db:         db,
		log:        log.With("service", "DeviceService"),
		deviceRepo: deviceRepo,
	}
}

func (ds *deviceService) RegisterForPairing(ctx context.Context, deviceID, code string) (*types.Device, bool, error) {
	if deviceID == "" || code == "" {
		return nil, false, fmt.Errorf("%w: device_id and pairing_code are required", apperr.ErrInvalidArgument)
	}

	var device *types.Device
	alreadyPaired := false
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ds.deviceRepo.GetByDeviceID(ctx, tx, deviceID, true)
		if errors.Is(err, apperr.ErrDeviceNotFound) {
			device = &types.Device{
				DeviceID:    deviceID,
				State:       types.StatePendingPairing,
				PairingCode: &code,
				CreatedAt:   time.Now(),
			}
			return ds.deviceRepo.Create(ctx, tx, device)
		}
		if err != nil {
			return err
		}

		switch existing.State {
		case types.StatePaired:
			alreadyPaired = true
			device = existing
			return nil
		case types.StateUnpaired, types.StatePendingPairing:
			existing.State = types.StatePendingPairing
			existing.PairingCode = &code
			existing.CreatedAt = time.Now()
			device = existing
			return ds.deviceRepo.Save(ctx, tx, existing)
		}
		return fmt.Errorf("%w: device %s in unknown state %q", apperr.ErrInvalidState, deviceID, existing.State)
	})
	if err != nil {
		return nil, false, err
	}
	return device, alreadyPaired, nil
}

func (ds *deviceService) ClaimPairing(ctx context.Context, code string, userID uuid.UUID) (*types.Device, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: pairing_code is required", apperr.ErrInvalidArgument)
	}

	var device *types.Device
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One paired device per user.
		_, err := ds.deviceRepo.GetPairedByUserID(ctx, tx, userID, true)
		if err == nil {
			return apperr.ErrAlreadyPaired
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		pending, err := ds.deviceRepo.GetPendingByCode(ctx, tx, code, true)
		if err != nil {
			return err
		}

		now := time.Now()
		pending.UserID = &userID
		pending.State = types.StatePaired
		pending.PairingCode = nil // single use
		pending.PairedAt = &now
		device = pending
		return ds.deviceRepo.Save(ctx, tx, pending)
	})
	if err != nil {
		// A concurrent claim by the same user against a different code slips
		// past the read above; the partial unique index on paired devices
		// rejects the second commit.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrAlreadyPaired
		}
		return nil, err
	}
	ds.log.Info("Device paired", "device_id", device.DeviceID, "user_id", userID)
	return device, nil
}

func (ds *deviceService) Unpair(ctx context.Context, deviceID string) (*types.Device, error) {
	var device *types.Device
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ds.deviceRepo.GetByDeviceID(ctx, tx, deviceID, true)
		if err != nil {
			return err
		}
		cleared, err := ds.clearPairing(ctx, tx, existing)
		if err != nil {
			return err
		}
		device = cleared
		return nil
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (ds *deviceService) UnpairByUser(ctx context.Context, userID uuid.UUID) (*types.Device, error) {
	var device *types.Device
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ds.deviceRepo.GetPairedByUserID(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		cleared, err := ds.clearPairing(ctx, tx, existing)
		if err != nil {
			return err
		}
		device = cleared
		return nil
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (ds *deviceService) clearPairing(ctx context.Context, tx *gorm.DB, device *types.Device) (*types.Device, error) {
	switch device.State {
	case types.StatePaired:
	case types.StateUnpaired, types.StatePendingPairing:
		return nil, fmt.Errorf("%w: device %s is not paired", apperr.ErrInvalidState, device.DeviceID)
	default:
		return nil, fmt.Errorf("%w: device %s in unknown state %q", apperr.ErrInvalidState, device.DeviceID, device.State)
	}

	userID := device.UserID
	device.UserID = nil
	device.State = types.StateUnpaired
	device.PairingCode = nil
	device.PairedAt = nil
	if err := ds.deviceRepo.Save(ctx, tx, device); err != nil {
		return nil, err
	}
	ds.log.Info("Device unpaired", "device_id", device.DeviceID, "user_id", userID)
	return device, nil
}

func (ds *deviceService) Status(ctx context.Context, deviceID string) (*types.Device, error) {
	return ds.deviceRepo.GetByDeviceID(ctx, nil, deviceID, false)
}

func (ds *deviceService) MyDevice(ctx context.Context, userID uuid.UUID) (*types.Device, error) {
	return ds.deviceRepo.GetPairedByUserID(ctx, nil, userID, false)
}

func (ds *deviceService) List(ctx context.Context) ([]*types.Device, error) {
	return ds.deviceRepo.List(ctx, nil)
}

func (ds *deviceService) Delete(ctx context.Context, deviceID string) error {
	return ds.deviceRepo.Delete(ctx, nil, deviceID)
}
