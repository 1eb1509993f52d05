package model

import "time"

// Tenant represents an isolated business unit sharing the cluster with others.
// This is a pure domain model with no database-specific dependencies or tags.
// The physical schema name is derived from ID and never stored.
type Tenant struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Profile   map[string]any `json:"profile,omitempty"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
