package store

import (
	"context"
	"errors"
	"testing"
)

func TestWriteBinding_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.WriteBinding(ctx, Binding{
		Scope:        "golda",
		Name:         "leanne-ussher",
		Relationship: RelIs,
		TargetType:   TargetText,
		TargetRef:    "Leanne Ussher",
		Permanence:   PermIntrinsic,
	})
	if err != nil {
		t.Fatalf("WriteBinding: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero binding id")
	}

	facts, err := s.About(ctx, "golda", "leanne-ussher")
	if err != nil {
		t.Fatalf("About: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("got %d bindings, want 1", len(facts))
	}
	b := facts[0]
	if b.Relationship != RelIs || b.TargetRef != "Leanne Ussher" || b.Permanence != PermIntrinsic {
		t.Errorf("unexpected binding %+v", b)
	}
}

func TestWriteBinding_RejectsPII(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cases := []string{
		"a@b.com",
		"reach her at 555-123-4567",
		"somewhere near 94110",
	}
	for _, ref := range cases {
		_, err := s.WriteBinding(ctx, Binding{
			Scope: "golda", Name: "jane-doe",
			Relationship: RelHas, TargetType: TargetText, TargetRef: ref,
		})
		if !errors.Is(err, ErrPIIRejected) {
			t.Errorf("TargetRef %q: error = %v, want ErrPIIRejected", ref, err)
		}
	}

	// Rejections must leave no rows behind.
	counts, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts.Bindings != 0 {
		t.Errorf("binding rows = %d, want 0 after rejections", counts.Bindings)
	}
}

func TestWriteBinding_DefaultPermanence(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteBinding(ctx, Binding{
		Scope: "golda", Name: "jdoe",
		Relationship: RelHas, TargetType: TargetURI, TargetRef: "crm:odoo/contact/7",
	}); err != nil {
		t.Fatalf("WriteBinding: %v", err)
	}
	facts, err := s.About(ctx, "golda", "jdoe")
	if err != nil {
		t.Fatalf("About: %v", err)
	}
	if facts[0].Permanence != PermCurrent {
		t.Errorf("permanence = %q, want CURRENT default", facts[0].Permanence)
	}
}

func TestWriteBinding_RequiredFields(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.WriteBinding(context.Background(), Binding{Scope: "golda"})
	if err == nil {
		t.Fatal("expected validation error for incomplete binding")
	}
}

func TestFindName_Prefix(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, b := range []Binding{
		{Scope: "golda", Name: "leanne-ussher", Relationship: RelIs, TargetType: TargetText, TargetRef: "Leanne Ussher"},
		{Scope: "golda", Name: "leo-marks", Relationship: RelIs, TargetType: TargetText, TargetRef: "Leo Marks"},
		{Scope: "golda", Name: "bobbi-vernon", Relationship: RelIs, TargetType: TargetText, TargetRef: "Bobbi Vernon"},
		{Scope: "work", Name: "leanne-ussher", Relationship: RelHas, TargetType: TargetURI, TargetRef: "crm:odoo/contact/12"},
	} {
		if _, err := s.WriteBinding(ctx, b); err != nil {
			t.Fatalf("WriteBinding(%s): %v", b.Name, err)
		}
	}

	facts, err := s.FindName(ctx, "golda", "le")
	if err != nil {
		t.Fatalf("FindName: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want 2", len(facts))
	}
	if facts[0].Name != "leanne-ussher" || facts[1].Name != "leo-marks" {
		t.Errorf("unexpected order: %+v", facts)
	}
}

func TestNames_DistinctByScope(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.WriteBinding(ctx, Binding{
			Scope: "golda", Name: "jane-doe",
			Relationship: RelAbout, TargetType: TargetContent, TargetRef: "1",
			Qualifier: "meeting notes",
		}); err != nil {
			t.Fatalf("WriteBinding: %v", err)
		}
	}

	names, err := s.Names(ctx, "golda", "")
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 || names[0] != "jane-doe" {
		t.Errorf("names = %v, want [jane-doe]", names)
	}
}

func TestWho_QualifierMatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteBinding(ctx, Binding{
		Scope: "golda", Name: "leanne-ussher",
		Relationship: RelAbout, TargetType: TargetContent, TargetRef: "4",
		Qualifier: "contact - currency design",
	}); err != nil {
		t.Fatalf("WriteBinding: %v", err)
	}

	hits, err := s.Who(ctx, "golda", "currency")
	if err != nil {
		t.Fatalf("Who: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "leanne-ussher" {
		t.Errorf("hits = %+v, want leanne-ussher", hits)
	}

	none, err := s.Who(ctx, "golda", "spelunking")
	if err != nil {
		t.Fatalf("Who: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no hits, got %+v", none)
	}
}

func TestBindingsInRange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, b := range []Binding{
		{Scope: "golda", Name: "july-contact", Relationship: RelIs, TargetType: TargetText, TargetRef: "July", SourceDate: "2025-07-14"},
		{Scope: "golda", Name: "oct-contact", Relationship: RelIs, TargetType: TargetText, TargetRef: "October", SourceDate: "2025-10-02"},
		{Scope: "golda", Name: "undated", Relationship: RelIs, TargetType: TargetText, TargetRef: "Nodate"},
	} {
		if _, err := s.WriteBinding(ctx, b); err != nil {
			t.Fatalf("WriteBinding(%s): %v", b.Name, err)
		}
	}

	hits, err := s.BindingsInRange(ctx, "golda", "2025-07", "2025-08")
	if err != nil {
		t.Fatalf("BindingsInRange: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "july-contact" {
		t.Errorf("hits = %+v, want only july-contact", hits)
	}
}

func TestDeleteBindings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.WriteBinding(ctx, Binding{
			Scope: "golda", Name: "linkedin-contacts-full",
			Relationship: RelAbout, TargetType: TargetContent, TargetRef: "9",
		}); err != nil {
			t.Fatalf("WriteBinding: %v", err)
		}
	}

	n, err := s.DeleteBindings(ctx, "golda", "linkedin-contacts-full")
	if err != nil {
		t.Fatalf("DeleteBindings: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rows, want 2", n)
	}
}
