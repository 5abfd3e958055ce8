package importer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestInferMapping_CommonHeaders(t *testing.T) {
	table := DefaultAliasTable()

	headers := []string{"First Name", "Last Name", "Email", "Phone Number", "Company", "City"}
	got := table.InferMapping(headers)

	want := map[string]string{
		"First Name":   "firstName",
		"Last Name":    "lastName",
		"Email":        "email",
		"Phone Number": "phone",
		"Company":      "company",
		"City":         "city",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InferMapping() = %v, want %v", got, want)
	}
}

func TestInferMapping_UnmatchedHeadersOmitted(t *testing.T) {
	table := DefaultAliasTable()

	got := table.InferMapping([]string{"Email", "Favorite Color", "Shoe Size"})

	if len(got) != 1 {
		t.Fatalf("InferMapping() mapped %d headers, want 1: %v", len(got), got)
	}
	if got["Email"] != "email" {
		t.Errorf(`mapping["Email"] = %q, want "email"`, got["Email"])
	}
	if _, ok := got["Favorite Color"]; ok {
		t.Error("unmatched header was mapped")
	}
}

func TestInferMapping_Deterministic(t *testing.T) {
	table := DefaultAliasTable()
	headers := []string{"Client Name", "Email", "Contact Number", "Labels"}

	first := table.InferMapping(headers)
	for i := 0; i < 50; i++ {
		if got := table.InferMapping(headers); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: InferMapping() = %v, want %v", i, got, first)
		}
	}
}

func TestInferMapping_SharedAliasFirstFieldWins(t *testing.T) {
	table := NewAliasTable([]FieldAliases{
		{Field: "firstName", Aliases: []string{"name"}},
		{Field: "lastName", Aliases: []string{"name"}},
	})

	got := table.InferMapping([]string{"Name"})
	if got["Name"] != "firstName" {
		t.Errorf(`mapping["Name"] = %q, want "firstName" (first entry in table order)`, got["Name"])
	}
}

func TestInferMapping_NormalizesCaseAndWhitespace(t *testing.T) {
	table := DefaultAliasTable()

	tests := []struct {
		header string
		field  string
	}{
		{"  EMAIL  ", "email"},
		{"E-Mail", "email"},
		{"FIRST NAME", "firstName"},
		{"zip code", "zip"},
		{"Postal Code", "zip"},
		{"Organisation", "company"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got := table.InferMapping([]string{tt.header})
			if got[tt.header] != tt.field {
				t.Errorf("InferMapping(%q) = %q, want %q", tt.header, got[tt.header], tt.field)
			}
		})
	}
}

func TestInferMapping_CanonicalNameAlwaysMatches(t *testing.T) {
	table := NewAliasTable([]FieldAliases{
		{Field: "email"}, // no explicit aliases
	})

	got := table.InferMapping([]string{"email"})
	if got["email"] != "email" {
		t.Errorf(`mapping["email"] = %q, want "email"`, got["email"])
	}
}

func TestLoadAliasTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.json")

	content := `[
		{"field": "firstName", "aliases": ["vorname"]},
		{"field": "lastName", "aliases": ["nachname"]}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadAliasTable(path)
	if err != nil {
		t.Fatalf("LoadAliasTable() error = %v", err)
	}

	got := table.InferMapping([]string{"Vorname", "Nachname"})
	want := map[string]string{"Vorname": "firstName", "Nachname": "lastName"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InferMapping() = %v, want %v", got, want)
	}

	if fields := table.Fields(); !reflect.DeepEqual(fields, []string{"firstName", "lastName"}) {
		t.Errorf("Fields() = %v", fields)
	}
}

func TestLoadAliasTable_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadAliasTable(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("LoadAliasTable() succeeded for missing file")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadAliasTable(path); err == nil {
			t.Error("LoadAliasTable() succeeded for invalid JSON")
		}
	})

	t.Run("empty table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadAliasTable(path); err == nil {
			t.Error("LoadAliasTable() succeeded for empty table")
		}
	})
}
