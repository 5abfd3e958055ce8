package contacts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store backed by maps. It exists for
// tests and single-node development; production deployments use
// PostgresStore.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*Contact
	byEmail  map[string]string // tenantID + "\x00" + email -> contact id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Contact),
		byEmail: make(map[string]string),
	}
}

func emailKey(tenantID, email string) string {
	return tenantID + "\x00" + email
}

// FindByEmail returns the tenant's contact with the given email, or nil.
func (s *MemoryStore) FindByEmail(_ context.Context, tenantID, email string) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(tenantID, email)]
	if !ok {
		return nil, nil
	}
	c := *s.byID[id]
	c.Tags = append([]string(nil), c.Tags...)
	return &c, nil
}

// Insert creates a new contact in the tenant.
func (s *MemoryStore) Insert(_ context.Context, tenantID string, in Input) (*Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c := &Contact{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		Zip:       in.Zip,
		Country:   in.Country,
		Notes:     in.Notes,
		Tags:      append([]string(nil), in.Tags...),
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.byID[c.ID] = c
	if c.Email != "" {
		s.byEmail[emailKey(tenantID, c.Email)] = c.ID
	}

	out := *c
	return &out, nil
}

// Update overwrites the named fields on an existing contact.
func (s *MemoryStore) Update(_ context.Context, contactID string, fields map[string]any) (*Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[contactID]
	if !ok {
		return nil, fmt.Errorf("contact not found: %s", contactID)
	}

	for name, value := range fields {
		switch name {
		case FieldTags:
			tags, ok := value.([]string)
			if !ok {
				return nil, fmt.Errorf("field %q requires a []string value", name)
			}
			c.Tags = append([]string(nil), tags...)
			continue
		}

		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q requires a string value", name)
		}

		switch name {
		case FieldFirstName:
			c.FirstName = str
		case FieldLastName:
			c.LastName = str
		case FieldEmail:
			if c.Email != "" {
				delete(s.byEmail, emailKey(c.TenantID, c.Email))
			}
			c.Email = str
			if str != "" {
				s.byEmail[emailKey(c.TenantID, str)] = c.ID
			}
		case FieldPhone:
			c.Phone = str
		case FieldCompany:
			c.Company = str
		case FieldAddress:
			c.Address = str
		case FieldCity:
			c.City = str
		case FieldState:
			c.State = str
		case FieldZip:
			c.Zip = str
		case FieldCountry:
			c.Country = str
		case FieldNotes:
			c.Notes = str
		default:
			return nil, fmt.Errorf("unknown contact field: %s", name)
		}
	}

	c.UpdatedAt = time.Now()

	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	return &out, nil
}

// Count returns the number of stored contacts across all tenants.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
