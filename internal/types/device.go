package types

import (
	"time"

	"github.com/google/uuid"
)

// Device is a physical wristband. State invariants:
//   - PairingCode is non-nil only in StatePendingPairing (codes are one-time
//     use and cleared the instant a claim succeeds);
//   - UserID is non-nil iff State == StatePaired;
//   - one paired device per user, backed by a partial unique index so the
//     invariant holds even across concurrent claims of different codes.
type Device struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID    string       `gorm:"uniqueIndex;not null;column:device_id" json:"device_id"`
	UserID      *uuid.UUID   `gorm:"type:uuid;index;uniqueIndex:uniq_device_paired_user,where:state = 'paired'" json:"user_id,omitempty"`
	User        *User        `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	State       PairingState `gorm:"not null;default:unpaired;column:state" json:"state"`
	PairingCode *string      `gorm:"index;column:pairing_code" json:"pairing_code,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	PairedAt    *time.Time   `gorm:"column:paired_at" json:"paired_at,omitempty"`
}

func (Device) TableName() string {
	return "device"
}

func (d *Device) Paired() bool {
	return d.State == StatePaired
}
