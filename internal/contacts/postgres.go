package contacts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against a contacts table.
// See schema.sql for the expected table definition.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const contactColumns = `id, tenant_id, first_name, last_name, email, phone, company,
	address, city, state, zip, country, notes, tags, status, created_at, updated_at`

// fieldColumns maps update field names to database columns.
var fieldColumns = map[string]string{
	FieldFirstName: "first_name",
	FieldLastName:  "last_name",
	FieldEmail:     "email",
	FieldPhone:     "phone",
	FieldCompany:   "company",
	FieldAddress:   "address",
	FieldCity:      "city",
	FieldState:     "state",
	FieldZip:       "zip",
	FieldCountry:   "country",
	FieldNotes:     "notes",
	FieldTags:      "tags",
}

// FindByEmail returns the tenant's contact with the given email, or nil.
func (s *PostgresStore) FindByEmail(ctx context.Context, tenantID, email string) (*Contact, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM contacts WHERE tenant_id = $1 AND email = $2",
		contactColumns,
	)

	row := s.pool.QueryRow(ctx, query, tenantID, email)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find contact by email: %w", err)
	}
	return c, nil
}

// Insert creates a new contact in the tenant.
func (s *PostgresStore) Insert(ctx context.Context, tenantID string, in Input) (*Contact, error) {
	query := fmt.Sprintf(`INSERT INTO contacts
		(id, tenant_id, first_name, last_name, email, phone, company,
		 address, city, state, zip, country, notes, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING %s`, contactColumns)

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	row := s.pool.QueryRow(ctx, query,
		uuid.New().String(), tenantID,
		in.FirstName, in.LastName, in.Email, in.Phone, in.Company,
		in.Address, in.City, in.State, in.Zip, in.Country, in.Notes,
		tags, in.Status, time.Now(),
	)

	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// Update overwrites the named fields on an existing contact.
// The SET clause is built dynamically from the field map; field names
// are resolved through fieldColumns so no caller input reaches the SQL
// text.
func (s *PostgresStore) Update(ctx context.Context, contactID string, fields map[string]any) (*Contact, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	// Sort for a stable statement text (helps prepared-statement reuse).
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var setParts []string
	args := []any{contactID}
	argIdx := 2

	for _, name := range names {
		col, ok := fieldColumns[name]
		if !ok {
			return nil, fmt.Errorf("unknown contact field: %s", name)
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, fields[name])
		argIdx++
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now())

	query := fmt.Sprintf(
		"UPDATE contacts SET %s WHERE id = $1 RETURNING %s",
		strings.Join(setParts, ", "),
		contactColumns,
	)

	row := s.pool.QueryRow(ctx, query, args...)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contact not found: %s", contactID)
	}
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Company, &c.Address, &c.City, &c.State, &c.Zip, &c.Country,
		&c.Notes, &c.Tags, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
