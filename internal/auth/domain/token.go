package domain

// Session is what a successful login returns: an opaque bearer token and
// its expiry in Unix seconds.
type Session struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// SessionPayload is the value stored in the token cache for every session.
type SessionPayload struct {
	UserID string `json:"userId"`
}
