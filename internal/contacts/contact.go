// Package contacts defines the contact store consumed by the import
// engine. The engine only ever touches the narrow Store capability;
// the Postgres and in-memory implementations in this package are
// interchangeable behind it.
package contacts

import "time"

// Contact is a tenant-scoped contact record.
type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Zip       string    `json:"zip,omitempty"`
	Country   string    `json:"country,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the payload for creating a contact.
type Input struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Address   string
	City      string
	State     string
	Zip       string
	Country   string
	Notes     string
	Tags      []string
	Status    string
}

// Field names accepted in an update field map. They match the canonical
// import field names so the engine can pass normalized rows through
// without translation.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCompany   = "company"
	FieldAddress   = "address"
	FieldCity      = "city"
	FieldState     = "state"
	FieldZip       = "zip"
	FieldCountry   = "country"
	FieldNotes     = "notes"
	FieldTags      = "tags"
)
