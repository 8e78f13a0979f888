package slugify

import (
	"context"
	"errors"
	"testing"

	"github.com/atelier-commerce/atelier/internal/shared"
)

type memRegistry struct {
	taken map[string]int64
}

func (m *memRegistry) SlugInUse(_ context.Context, slug string, excludeID int64) (bool, error) {
	owner, ok := m.taken[slug]
	if !ok {
		return false, nil
	}
	return excludeID == 0 || owner != excludeID, nil
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Aurora Lamp", "aurora-lamp"},
		{"  Café  Crème!  ", "cafe-creme"},
		{"Ärmchen & Stühle", "armchen-stuhle"},
		{"100% Linen -- Throw", "100-linen-throw"},
		{"UPPER_case slug", "upper-case-slug"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeEmptyFails(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!", "--"} {
		if _, err := Normalize(in); !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("Normalize(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestAllocateDeterministicSuffixes(t *testing.T) {
	reg := &memRegistry{taken: map[string]int64{}}
	alloc := NewAllocator(reg)
	ctx := context.Background()

	first, err := alloc.Allocate(ctx, "Aurora Lamp", 0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if first != "aurora-lamp" {
		t.Fatalf("expected aurora-lamp, got %q", first)
	}
	reg.taken[first] = 1

	second, err := alloc.Allocate(ctx, "Aurora Lamp", 0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if second != "aurora-lamp-1" {
		t.Fatalf("expected aurora-lamp-1, got %q", second)
	}
	reg.taken[second] = 2

	third, err := alloc.Allocate(ctx, "Aurora Lamp", 0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if third != "aurora-lamp-2" {
		t.Fatalf("expected aurora-lamp-2, got %q", third)
	}
}

func TestAllocateUpdateExemptsOwnSlug(t *testing.T) {
	reg := &memRegistry{taken: map[string]int64{"aurora-lamp": 7}}
	alloc := NewAllocator(reg)

	got, err := alloc.Allocate(context.Background(), "Aurora Lamp", 7)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "aurora-lamp" {
		t.Fatalf("expected update to keep aurora-lamp, got %q", got)
	}
}
