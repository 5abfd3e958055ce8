package contacts

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryStore_InsertAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.Insert(ctx, "tenant-1", Input{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Tags:      []string{"vip"},
		Status:    "active",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if c.ID == "" {
		t.Error("inserted contact has no id")
	}
	if c.TenantID != "tenant-1" {
		t.Errorf("TenantID = %q", c.TenantID)
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	found, err := store.FindByEmail(ctx, "tenant-1", "jane@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if found == nil {
		t.Fatal("FindByEmail() returned nil for existing contact")
	}
	if found.ID != c.ID {
		t.Errorf("found id = %q, want %q", found.ID, c.ID)
	}
	if !reflect.DeepEqual(found.Tags, []string{"vip"}) {
		t.Errorf("Tags = %v", found.Tags)
	}
}

func TestMemoryStore_FindByEmail_Absent(t *testing.T) {
	store := NewMemoryStore()

	found, err := store.FindByEmail(context.Background(), "tenant-1", "nobody@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if found != nil {
		t.Errorf("FindByEmail() = %v, want nil for absent email", found)
	}
}

func TestMemoryStore_FindByEmail_TenantScoped(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Insert(ctx, "tenant-1", Input{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
	}); err != nil {
		t.Fatal(err)
	}

	found, err := store.FindByEmail(ctx, "tenant-2", "jane@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found != nil {
		t.Error("contact leaked across tenants")
	}
}

func TestMemoryStore_CopyOnReturn(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	inserted, err := store.Insert(ctx, "tenant-1", Input{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Mutating a returned copy must not affect stored state.
	inserted.FirstName = "Hacked"

	found, err := store.FindByEmail(ctx, "tenant-1", "jane@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found.FirstName != "Jane" {
		t.Errorf("stored FirstName = %q, caller mutation leaked in", found.FirstName)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.Insert(ctx, "tenant-1", Input{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
		Phone: "555-0000",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := store.Update(ctx, c.ID, map[string]any{
		FieldPhone: "555-1111",
		FieldCity:  "Portland",
		FieldTags:  []string{"vip", "residential"},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Phone != "555-1111" {
		t.Errorf("Phone = %q", updated.Phone)
	}
	if updated.City != "Portland" {
		t.Errorf("City = %q", updated.City)
	}
	if !reflect.DeepEqual(updated.Tags, []string{"vip", "residential"}) {
		t.Errorf("Tags = %v", updated.Tags)
	}
	if updated.FirstName != "Jane" {
		t.Errorf("FirstName = %q, untouched field changed", updated.FirstName)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Error("UpdatedAt not refreshed")
	}
}

func TestMemoryStore_UpdateEmailReindexes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.Insert(ctx, "tenant-1", Input{
		FirstName: "Jane", LastName: "Doe", Email: "old@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Update(ctx, c.ID, map[string]any{FieldEmail: "new@example.com"}); err != nil {
		t.Fatal(err)
	}

	if found, _ := store.FindByEmail(ctx, "tenant-1", "old@example.com"); found != nil {
		t.Error("old email still indexed")
	}
	found, _ := store.FindByEmail(ctx, "tenant-1", "new@example.com")
	if found == nil || found.ID != c.ID {
		t.Error("new email not findable")
	}
}

func TestMemoryStore_UpdateErrors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.Insert(ctx, "tenant-1", Input{FirstName: "Jane", LastName: "Doe"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("unknown contact", func(t *testing.T) {
		if _, err := store.Update(ctx, "no-such-id", map[string]any{FieldPhone: "x"}); err == nil {
			t.Error("Update() succeeded for unknown contact")
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if _, err := store.Update(ctx, c.ID, map[string]any{"favoriteColor": "blue"}); err == nil {
			t.Error("Update() succeeded for unknown field")
		}
	})

	t.Run("wrong value type", func(t *testing.T) {
		if _, err := store.Update(ctx, c.ID, map[string]any{FieldPhone: 42}); err == nil {
			t.Error("Update() succeeded for non-string value")
		}
	})
}
