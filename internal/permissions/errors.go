package permissions

import "fmt"

// Every failure kind carries the offending identifier so the skip
// handler can attribute the error-log row. None of these abort the
// batch; they fail only the individual record.

// NoMatchFoundError reports an identifier no member tenant owns.
type NoMatchFoundError struct {
	Identifier string
}

func (e *NoMatchFoundError) Error() string {
	return fmt.Sprintf("no match found for identifier %s", e.Identifier)
}

// DuplicateAcrossTenantsError reports an identifier claimed by more
// than one member tenant.
type DuplicateAcrossTenantsError struct {
	Identifier string
	Tenants    []string
}

func (e *DuplicateAcrossTenantsError) Error() string {
	return fmt.Sprintf("identifier %s matched in %d tenants", e.Identifier, len(e.Tenants))
}

// NotAffiliatedError reports a user without an affiliation to the
// record's owning tenant.
type NotAffiliatedError struct {
	Identifier string
	TenantID   string
}

func (e *NotAffiliatedError) Error() string {
	return fmt.Sprintf("user is not affiliated with tenant %s owning identifier %s", e.TenantID, e.Identifier)
}

// DeniedError reports a missing permission in the checked tenant.
type DeniedError struct {
	Identifier string
	TenantID   string
	Permission string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("user lacks %s in tenant %s for identifier %s", e.Permission, e.TenantID, e.Identifier)
}
