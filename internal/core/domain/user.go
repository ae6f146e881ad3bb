package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// HashPassword returns the hex-encoded SHA-256 digest stored in the
// users table. Credentials are always compared hash-to-hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
