package redis

import "fmt"

// Key naming conventions for Redis keys.
// All keys follow the pattern: {namespace}:{entity}:{id}:{field}
//
// Example: "br:session:abc123" for the session with id abc123

const (
	// KeyNamespace prefixes all keys written by this service.
	KeyNamespace = "br" // blendroom
)

// SessionKey returns the key holding a session's JSON document.
// Example: br:session:abc123
func SessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", KeyNamespace, sessionID)
}

// SessionCodeKey returns the key mapping a join code to a session ID.
// Example: br:session:code:XK4P2M
func SessionCodeKey(code string) string {
	return fmt.Sprintf("%s:session:code:%s", KeyNamespace, code)
}

// UserSessionKey returns the key mapping a user to the session they are in.
// Example: br:user:u42:session
func UserSessionKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:session", KeyNamespace, userID)
}

// SessionIndexKey returns the key of the set holding all session IDs.
func SessionIndexKey() string {
	return fmt.Sprintf("%s:sessions", KeyNamespace)
}

// TasteProfileKey returns the key caching a user's taste profile.
// Example: br:profile:u42
func TasteProfileKey(userID string) string {
	return fmt.Sprintf("%s:profile:%s", KeyNamespace, userID)
}

// RateLimitKey returns a key for rate limiting.
// Example: br:ratelimit:user:u42:minute
func RateLimitKey(rtype, identifier, window string) string {
	return fmt.Sprintf("%s:ratelimit:%s:%s:%s", KeyNamespace, rtype, identifier, window)
}

// SessionChannel returns the pub/sub channel carrying events for a session.
// Example: br:events:session:abc123
func SessionChannel(sessionID string) string {
	return fmt.Sprintf("%s:events:session:%s", KeyNamespace, sessionID)
}
