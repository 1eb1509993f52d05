package model

import "time"

// Account is a global user referenced by memberships. Account management
// itself is owned by the global layer; this core only reads it.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is a login session row in the shared schema. The table is
// bootstrapped here; session handling lives outside this layer.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
