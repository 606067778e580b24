package trustees

import "time"

// Link binds a trustee to the principal it guards. A (PrincipalID, TrusteeID)
// pair exists at most once.
type Link struct {
	PrincipalID string
	TrusteeID   string
	DisplayName string
	CreatedAt   time.Time
}
