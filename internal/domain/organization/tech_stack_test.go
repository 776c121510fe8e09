package organization

import (
	"errors"
	"reflect"
	"testing"

	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

func TestTechStack_AddTrimsAndAppends(t *testing.T) {
	var s TechStack
	if err := s.Add("  React "); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("Node.js"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := []string{"React", "Node.js"}
	if got := s.Labels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTechStack_AddRejectsBlankAndDuplicates(t *testing.T) {
	s := NewTechStack("React", "Node.js")

	if err := s.Add("   "); !errors.Is(err, sharedErrors.ErrEmptyTechnology) {
		t.Fatalf("expected ErrEmptyTechnology, got %v", err)
	}
	if err := s.Add("React"); !errors.Is(err, sharedErrors.ErrDuplicateTechnology) {
		t.Fatalf("expected ErrDuplicateTechnology, got %v", err)
	}
	if err := s.Add(" React "); !errors.Is(err, sharedErrors.ErrDuplicateTechnology) {
		t.Fatalf("expected trimmed duplicate to be rejected, got %v", err)
	}
	// comparison is case-sensitive
	if err := s.Add("react"); err != nil {
		t.Fatalf("expected case variant to be accepted, got %v", err)
	}

	want := []string{"React", "Node.js", "react"}
	if got := s.Labels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTechStack_NoDuplicatesForAnySequence(t *testing.T) {
	inputs := []string{"Go", "go", " Go", "Rust", "", "Rust ", "Go", "Kafka", "  ", "kafka"}
	var s TechStack
	for _, in := range inputs {
		_ = s.Add(in)
	}

	want := []string{"Go", "go", "Rust", "Kafka", "kafka"}
	if got := s.Labels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected first-insertion order %v, got %v", want, got)
	}
	seen := map[string]bool{}
	for _, l := range s.Labels() {
		if seen[l] {
			t.Fatalf("duplicate label %q in %v", l, s.Labels())
		}
		seen[l] = true
	}
}

func TestTechStack_RemoveAbsentIsNoop(t *testing.T) {
	s := NewTechStack("React", "Node.js")
	if s.Remove("PostgreSQL") {
		t.Fatal("expected Remove to report nothing removed")
	}
	want := []string{"React", "Node.js"}
	if got := s.Labels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTechStack_RemoveDoesNotAliasCopies(t *testing.T) {
	s := NewTechStack("A", "B", "C")
	before := s.Labels()
	if !s.Remove("B") {
		t.Fatal("expected B to be removed")
	}
	if !reflect.DeepEqual(before, []string{"A", "B", "C"}) {
		t.Fatalf("earlier copy was mutated: %v", before)
	}
	if got := s.Labels(); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("unexpected stack after remove: %v", got)
	}
}

func TestOrganization_TechStackIsIndependent(t *testing.T) {
	org := Reconstruct(1, "Acme", "", "", []string{"React", " React", "Node.js"}, false)

	stack := org.TechStack()
	if got := stack.Labels(); !reflect.DeepEqual(got, []string{"React", "Node.js"}) {
		t.Fatalf("expected seeded stack to be deduplicated, got %v", got)
	}

	_ = stack.Add("PostgreSQL")
	if org.TechStack().Len() != 2 {
		t.Fatalf("editing the seeded stack must not change the organization")
	}
}
