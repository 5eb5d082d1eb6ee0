package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

func newTestDevices(t *testing.T) (DeviceService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	log := testLogger()
	return NewDeviceService(db, log, repos.NewDeviceRepo(db, log)), db
}

func TestRegisterForPairing_CreatesPendingDevice(t *testing.T) {
	svc, _ := newTestDevices(t)

	device, alreadyPaired, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "482913")
	if err != nil {
		t.Fatalf("RegisterForPairing: %v", err)
	}
	if alreadyPaired {
		t.Fatalf("fresh device reported as paired")
	}
	if device.State != types.StatePendingPairing {
		t.Fatalf("expected pending_pairing, got %s", device.State)
	}
	if device.PairingCode == nil || *device.PairingCode != "482913" {
		t.Fatalf("pairing code not stored: %+v", device)
	}
	if device.UserID != nil {
		t.Fatalf("pending device must have no owner")
	}
}

func TestRegisterForPairing_RefreshesCodeOnReboot(t *testing.T) {
	svc, _ := newTestDevices(t)

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "111111"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	device, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "222222")
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if device.PairingCode == nil || *device.PairingCode != "222222" {
		t.Fatalf("reboot should replace the code, got %+v", device.PairingCode)
	}
	if device.State != types.StatePendingPairing {
		t.Fatalf("expected pending_pairing, got %s", device.State)
	}
}

func TestRegisterForPairing_RequiresArguments(t *testing.T) {
	svc, _ := newTestDevices(t)

	if _, _, err := svc.RegisterForPairing(context.Background(), "", "123456"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty device id, got %v", err)
	}
	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty code, got %v", err)
	}
}

func TestClaimPairing_BindsDeviceAndBurnsCode(t *testing.T) {
	svc, db := newTestDevices(t)
	user := createTestUser(t, db, "pairing@test.local")

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "482913"); err != nil {
		t.Fatalf("register: %v", err)
	}

	device, err := svc.ClaimPairing(context.Background(), "482913", user.ID)
	if err != nil {
		t.Fatalf("ClaimPairing: %v", err)
	}
	if device.State != types.StatePaired || !device.Paired() {
		t.Fatalf("expected paired, got %s", device.State)
	}
	if device.UserID == nil || *device.UserID != user.ID {
		t.Fatalf("device not bound to the claiming user: %+v", device)
	}
	if device.PairingCode != nil {
		t.Fatalf("code must be cleared on claim")
	}
	if device.PairedAt == nil {
		t.Fatalf("paired_at must be set")
	}

	// The code is single use.
	other := createTestUser(t, db, "second@test.local")
	if _, err := svc.ClaimPairing(context.Background(), "482913", other.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("burned code should be ErrNotFound, got %v", err)
	}
}

func TestClaimPairing_OneDevicePerUser(t *testing.T) {
	svc, db := newTestDevices(t)
	user := createTestUser(t, db, "greedy@test.local")

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "111111"); err != nil {
		t.Fatalf("register 1: %v", err)
	}
	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-002", "222222"); err != nil {
		t.Fatalf("register 2: %v", err)
	}
	if _, err := svc.ClaimPairing(context.Background(), "111111", user.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := svc.ClaimPairing(context.Background(), "222222", user.ID); !errors.Is(err, apperr.ErrAlreadyPaired) {
		t.Fatalf("expected ErrAlreadyPaired, got %v", err)
	}
}

func TestClaimPairing_PairedIndexBlocksSecondDevice(t *testing.T) {
	svc, db := newTestDevices(t)
	user := createTestUser(t, db, "racer@test.local")

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-A", "111111"); err != nil {
		t.Fatalf("RegisterForPairing: %v", err)
	}
	if _, err := svc.ClaimPairing(context.Background(), "111111", user.ID); err != nil {
		t.Fatalf("ClaimPairing: %v", err)
	}

	// Write a second paired row directly, bypassing the service's read. This
	// is what a concurrent claim of a different code looks like at commit
	// time; the partial unique index on (user_id) where state = 'paired'
	// rejects it.
	second := &types.Device{
		DeviceID: "ESP32-B",
		State:    types.StatePaired,
		UserID:   &user.ID,
	}
	if err := db.Create(second).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated-key error from paired index, got %v", err)
	}

	// Unpairing frees the slot again.
	if _, err := svc.UnpairByUser(context.Background(), user.ID); err != nil {
		t.Fatalf("UnpairByUser: %v", err)
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("paired row after unpair should insert, got %v", err)
	}
}

func TestClaimPairing_UnknownCode(t *testing.T) {
	svc, db := newTestDevices(t)
	user := createTestUser(t, db, "lost@test.local")

	if _, err := svc.ClaimPairing(context.Background(), "999999", user.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnpair_FullCycle(t *testing.T) {
	svc, db := newTestDevices(t)
	user := createTestUser(t, db, "cycle@test.local")

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "482913"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.ClaimPairing(context.Background(), "482913", user.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	device, err := svc.UnpairByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("UnpairByUser: %v", err)
	}
	if device.State != types.StateUnpaired || device.UserID != nil || device.PairedAt != nil {
		t.Fatalf("unpair left residue: %+v", device)
	}

	// Nothing left to unpair.
	if _, err := svc.UnpairByUser(context.Background(), user.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The device can be paired again after a fresh registration.
	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "777777"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if _, err := svc.ClaimPairing(context.Background(), "777777", user.ID); err != nil {
		t.Fatalf("re-claim: %v", err)
	}
}

func TestUnpair_RejectsNonPairedStates(t *testing.T) {
	svc, _ := newTestDevices(t)

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "482913"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Unpair(context.Background(), "ESP32-001"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("unpair of pending device should be ErrInvalidState, got %v", err)
	}
	if _, err := svc.Unpair(context.Background(), "no-such-device"); !errors.Is(err, apperr.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestRegisterForPairing_PairedDeviceUntouched(t *testing.T) {
	svc, db := newTestDevices(t)
	user := createTestUser(t, db, "stable@test.local")

	if _, _, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "482913"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.ClaimPairing(context.Background(), "482913", user.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// The wristband reboots while paired; its registration must not unpair it.
	device, alreadyPaired, err := svc.RegisterForPairing(context.Background(), "ESP32-001", "555555")
	if err != nil {
		t.Fatalf("reboot register: %v", err)
	}
	if !alreadyPaired {
		t.Fatalf("expected alreadyPaired")
	}
	if device.State != types.StatePaired || device.UserID == nil {
		t.Fatalf("reboot must not clear pairing: %+v", device)
	}
}
