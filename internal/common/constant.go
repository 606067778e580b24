package common

const (
	// LockThreshold is the number of failed credential checks that freezes
	// a principal.
	LockThreshold = 5

	// MaxTrustees bounds the fan-out set per principal.
	MaxTrustees = 10

	// RecoveryKeyLength is the number of digits in a one-time recovery key.
	RecoveryKeyLength = 6

	// DefaultThresholdHours is the liveness window applied to new principals.
	DefaultThresholdHours = 72

	// ReminderFraction of the liveness window after which the owner receives
	// a non-mutating reminder.
	ReminderFraction = 0.8
)
