package domain

import "time"

// UpstreamTokenTTL is how long an upstream bearer token stays usable before
// the session must be refreshed or re-authenticated.
const UpstreamTokenTTL = time.Hour

// Session is the client-held proof of authentication: the locally issued
// bearer token plus the identity it was issued for and the upstream token it
// maps to. Token and identity are always written and cleared together; a
// session with an empty token authorizes nothing.
type Session struct {
	Token         string
	Identity      string
	UpstreamToken string
	IssuedAt      time.Time
}

// IsAuthenticated reports whether the session may be used for upstream
// requests at all.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.Identity != ""
}

// UpstreamExpired reports whether the upstream token has outlived its TTL
// as of now.
func (s Session) UpstreamExpired(now time.Time) bool {
	if s.IssuedAt.IsZero() {
		return true
	}
	return !now.Before(s.IssuedAt.Add(UpstreamTokenTTL))
}
