package contacts

import "context"

// Store is the capability the import engine consumes. All lookups and
// writes are scoped to a tenant; Update addresses a contact by id
// because the caller already holds a snapshot of the existing record.
type Store interface {
	// FindByEmail returns the contact with the given email within the
	// tenant, or nil if none exists. Email comparison is exact.
	FindByEmail(ctx context.Context, tenantID, email string) (*Contact, error)

	// Insert creates a new contact in the tenant and returns it.
	Insert(ctx context.Context, tenantID string, in Input) (*Contact, error)

	// Update overwrites the named fields on an existing contact and
	// returns the updated record. Fields absent from the map are left
	// untouched. Tags must be passed as a []string value.
	Update(ctx context.Context, contactID string, fields map[string]any) (*Contact, error)
}
