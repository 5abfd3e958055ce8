package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FieldAliases binds one canonical contact field to the CSV header
// spellings that should map to it.
type FieldAliases struct {
	Field   string   `json:"field"`
	Aliases []string `json:"aliases"`
}

// AliasTable drives header-to-field mapping inference. The entry order
// is significant: when a header matches several fields, the first
// field in table order wins, which keeps inference deterministic for a
// given table.
type AliasTable struct {
	entries []FieldAliases
	// lookup maps normalized alias -> position in entries.
	lookup map[string]int
}

// NewAliasTable builds a table from ordered field/alias entries. The
// canonical field name itself always matches, with or without an
// explicit alias entry.
func NewAliasTable(entries []FieldAliases) AliasTable {
	t := AliasTable{
		entries: entries,
		lookup:  make(map[string]int),
	}

	for i, e := range entries {
		t.addAlias(e.Field, i)
		for _, a := range e.Aliases {
			t.addAlias(a, i)
		}
	}
	return t
}

func (t *AliasTable) addAlias(alias string, idx int) {
	alias = normalizeHeader(alias)
	if alias == "" {
		return
	}
	// First field in table order wins for a shared alias.
	if _, exists := t.lookup[alias]; !exists {
		t.lookup[alias] = idx
	}
}

// LoadAliasTable reads an alias table from a JSON file. The file holds
// an ordered array of {"field": ..., "aliases": [...]} objects, so
// deployments can extend the dictionary without code changes.
func LoadAliasTable(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AliasTable{}, fmt.Errorf("read alias table: %w", err)
	}

	var entries []FieldAliases
	if err := json.Unmarshal(data, &entries); err != nil {
		return AliasTable{}, fmt.Errorf("parse alias table %s: %w", path, err)
	}
	if len(entries) == 0 {
		return AliasTable{}, fmt.Errorf("alias table %s is empty", path)
	}

	return NewAliasTable(entries), nil
}

// DefaultAliasTable returns the built-in alias dictionary covering the
// header spellings commonly seen in contact exports.
func DefaultAliasTable() AliasTable {
	return NewAliasTable([]FieldAliases{
		{Field: "firstName", Aliases: []string{
			"first name", "firstname", "first", "given name", "fname",
			"client name", "name", "full name",
		}},
		{Field: "lastName", Aliases: []string{
			"last name", "lastname", "last", "surname", "family name", "lname",
		}},
		{Field: "email", Aliases: []string{
			"email", "e-mail", "email address", "mail",
		}},
		{Field: "phone", Aliases: []string{
			"phone", "phone number", "mobile", "cell", "telephone", "contact number",
		}},
		{Field: "company", Aliases: []string{
			"company", "company name", "business", "organization", "organisation",
		}},
		{Field: "address", Aliases: []string{
			"address", "street", "street address", "address 1", "address line 1",
		}},
		{Field: "city", Aliases: []string{"city", "town"}},
		{Field: "state", Aliases: []string{"state", "province", "region"}},
		{Field: "zip", Aliases: []string{
			"zip", "zip code", "zipcode", "postal code", "postcode",
		}},
		{Field: "country", Aliases: []string{"country"}},
		{Field: "notes", Aliases: []string{"notes", "comments", "description"}},
		{Field: "tags", Aliases: []string{"tags", "labels", "categories"}},
	})
}

// InferMapping maps CSV headers to canonical field names. Headers that
// match nothing are omitted; the caller may map them manually. The
// result is deterministic for a given header list and alias table.
func (t AliasTable) InferMapping(headers []string) map[string]string {
	mapping := make(map[string]string)

	for _, header := range headers {
		idx, ok := t.lookup[normalizeHeader(header)]
		if !ok {
			continue
		}
		mapping[header] = t.entries[idx].Field
	}

	return mapping
}

// Fields returns the canonical field names in table order.
func (t AliasTable) Fields() []string {
	fields := make([]string, len(t.entries))
	for i, e := range t.entries {
		fields[i] = e.Field
	}
	return fields
}

// normalizeHeader lowercases and trims a header for alias comparison.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
