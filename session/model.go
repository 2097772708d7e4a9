package session

// Session is one refresh-token-addressed login session. Token is the opaque
// refresh credential and doubles as the Redis key suffix; it is never stored
// inside the encoded blob.
type Session struct {
	Token     string
	UserID    string
	IP        string
	UserAgent string
	Origin    string

	CreatedAt int64
	ExpiresAt int64
}
