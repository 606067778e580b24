package principals

import "time"

type LockState string

const (
	LockStateActive LockState = "active"
	LockStateLocked LockState = "locked"
)

type LivenessStatus string

const (
	LivenessAlive   LivenessStatus = "alive"
	LivenessExpired LivenessStatus = "expired"
)

// Principal is the owner account being monitored. The lock dimension and the
// liveness dimension are orthogonal: both live on this record, but only
// LivenessStatus gates distribution.
type Principal struct {
	ID             string
	DisplayName    string
	CredentialHash []byte
	CredentialSalt []byte
	FailedAttempts int
	LockState      LockState
	RecoveryKey    string
	ThresholdHours int
	LastHeartbeat  time.Time
	LivenessStatus LivenessStatus
	CreatedAt      time.Time
}

func (p *Principal) Locked() bool {
	return p.LockState == LockStateLocked
}

func (p *Principal) HasCredential() bool {
	return len(p.CredentialHash) > 0
}

// Elapsed returns how long the principal has gone without a heartbeat.
func (p *Principal) Elapsed(now time.Time) time.Duration {
	return now.Sub(p.LastHeartbeat)
}

// Threshold returns the liveness window as a duration.
func (p *Principal) Threshold() time.Duration {
	return time.Duration(p.ThresholdHours) * time.Hour
}
