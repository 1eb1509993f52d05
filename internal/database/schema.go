package database

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SharedSchema is the one schema holding cross-tenant registry data
	// (accounts, tenants, memberships, sessions).
	SharedSchema = "shared"

	tenantSchemaPrefix = "tenant_"

	// PostgreSQL truncates identifiers at 63 bytes; reject ids that would
	// produce a truncated (and therefore possibly colliding) schema name.
	maxTenantIDLen = 63 - len(tenantSchemaPrefix)
)

// ErrInvalidTenantID is returned when a tenant id cannot be mapped to a
// schema name. Schema names are interpolated into DDL statements and can
// never be bound parameters, so anything outside the allow-list is rejected
// outright rather than escaped.
var ErrInvalidTenantID = errors.New("invalid tenant id")

// TenantSchemaName maps a tenant id to its schema name.
//
// The mapping is deterministic and injective over valid ids: the id is
// validated against the allow-list [a-z0-9-], then dashes are folded to
// underscores under a fixed prefix. Because '_' itself is not a valid id
// character, two distinct valid ids can never produce the same name.
func TenantSchemaName(tenantID string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTenantID)
	}
	if len(tenantID) > maxTenantIDLen {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidTenantID, maxTenantIDLen)
	}
	for _, r := range tenantID {
		if !isSchemaSafe(r) {
			return "", fmt.Errorf("%w: character %q not allowed", ErrInvalidTenantID, r)
		}
	}
	return tenantSchemaPrefix + strings.ReplaceAll(tenantID, "-", "_"), nil
}

func isSchemaSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
}
