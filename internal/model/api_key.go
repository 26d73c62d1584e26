package model

import "time"

// APIKey is a panel API credential. Only the SHA-256 hash of the raw key is
// stored; the prefix exists so operators can tell keys apart.
type APIKey struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	KeyPrefix string     `json:"key_prefix" db:"key_prefix"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}
