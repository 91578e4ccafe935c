package links

import (
	"fmt"
	"time"
)

// Link is one issued portable artifact link. A link is immutable once
// issued; changing anything means revoking and generating a new one.
type Link struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Issuer       string     `json:"issuer"`
	BuildID      int64      `json:"build_id"`
	ArtifactPath string     `json:"artifact_path"`
}

// Expired reports whether the link's expiry has elapsed at the given
// instant. Links without an expiry never expire.
func (l Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

func (l Link) String() string {
	expiry := "never"
	if l.ExpiresAt != nil {
		expiry = l.ExpiresAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("build %d, artifact %s, issued by %s, expires %s", l.BuildID, l.ArtifactPath, l.Issuer, expiry)
}
