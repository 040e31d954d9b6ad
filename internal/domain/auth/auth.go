package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Role is the access level of an authenticated caller.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// Principal identifies the caller of a request.
type Principal struct {
	ID   string
	Name string
	Role Role
}

// IsAdmin reports whether p carries the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// HashKey returns the hex-encoded HMAC-SHA256 of key under pepper. Only this
// hash is ever stored in configuration.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyKey reports whether key hashes to storedHex under pepper. The
// comparison runs in constant time.
func VerifyKey(pepper []byte, key, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil || len(stored) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return subtle.ConstantTimeCompare(mac.Sum(nil), stored) == 1
}
