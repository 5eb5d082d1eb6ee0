package types

// Prediction is the model's verdict on one reading.
type Prediction string

const (
	PredictionNormal  Prediction = "NORMAL"
	PredictionAnomaly Prediction = "ANOMALY"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// PairingState is the device lifecycle. Transitions:
// unpaired -> pending_pairing on boot registration, pending_pairing -> paired
// on a successful claim, paired -> unpaired on unpair.
type PairingState string

const (
	StateUnpaired       PairingState = "unpaired"
	StatePendingPairing PairingState = "pending_pairing"
	StatePaired         PairingState = "paired"
)

type AlertType string

const (
	AlertAIAnomaly     AlertType = "AI_ANOMALY"
	AlertHighHeartRate AlertType = "HIGH_HEART_RATE"
	AlertHighActivity  AlertType = "HIGH_ACTIVITY"
)

type AlertSeverity string

const (
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)
