package model

import "time"

// HostingAccount is the owning record for certificates. Provisioning of the
// account itself on the hosting panel is handled by an external integration.
type HostingAccount struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Domain    string    `json:"domain" db:"domain"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
	AccountStatusDeleted   = "deleted"
)
