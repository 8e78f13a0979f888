package cachekey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type filterFixture struct {
	Term       string            `json:"term"`
	Statuses   []string          `json:"statuses"`
	PriceMin   *float64          `json:"priceMin"`
	Attributes map[string]any    `json:"attributes"`
	Nested     map[string][]int  `json:"nested"`
	Labels     map[string]string `json:"labels"`
}

func TestEncodeIgnoresMapOrderAndNilEntries(t *testing.T) {
	min := 25.0
	a := filterFixture{
		Term:       "lamp",
		Statuses:   []string{"ACTIVE", "DRAFT"},
		PriceMin:   &min,
		Attributes: map[string]any{"color": "oak", "finish": nil, "sizes": []string{"s", "m"}},
		Nested:     map[string][]int{"b": {2}, "a": {1}},
	}
	b := filterFixture{
		Term:       "lamp",
		Statuses:   []string{"ACTIVE", "DRAFT"},
		PriceMin:   &min,
		Attributes: map[string]any{"sizes": []string{"s", "m"}, "color": "oak"},
		Nested:     map[string][]int{"a": {1}, "b": {2}},
	}

	require.Equal(t, Encode(a), Encode(b))
}

func TestEncodeDistinguishesDefinedFields(t *testing.T) {
	base := filterFixture{Term: "lamp", Statuses: []string{"ACTIVE"}}
	cases := []filterFixture{
		{Term: "lamps", Statuses: []string{"ACTIVE"}},
		{Term: "lamp", Statuses: []string{"DRAFT"}},
		{Term: "lamp", Statuses: []string{"ACTIVE", "DRAFT"}},
		{Term: "lamp", Statuses: []string{"ACTIVE"}, Labels: map[string]string{"x": "y"}},
	}
	enc := Encode(base)
	for _, c := range cases {
		if Encode(c) == enc {
			t.Fatalf("expected distinct encoding for %+v", c)
		}
	}
}

func TestEncodeArrayOrderSignificant(t *testing.T) {
	a := Encode([]string{"a", "b"})
	b := Encode([]string{"b", "a"})
	require.NotEqual(t, a, b)
}

func TestEncodeNilSliceEqualsAbsent(t *testing.T) {
	a := filterFixture{Term: "rug"}
	b := filterFixture{Term: "rug", Statuses: nil}
	require.Equal(t, Encode(a), Encode(b))
}

func TestEncodeCycleGuard(t *testing.T) {
	type node struct {
		Name string
		Next *node
	}
	n := &node{Name: "loop"}
	n.Next = n

	// Must terminate and stay deterministic.
	first := Encode(n)
	second := Encode(n)
	require.Equal(t, first, second)
	require.Contains(t, first, "<cycle>")
}

func TestEncodeScoped(t *testing.T) {
	params := map[string]any{"page": 1}
	a := EncodeScoped("product_lists", params)
	b := EncodeScoped("category_trees", params)
	require.NotEqual(t, a, b)
}
