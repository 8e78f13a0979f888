package products

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atelier-commerce/atelier/internal/shared"
)

// validateInput checks invariants the struct tags cannot express and returns
// a normalized copy: defaults applied, keywords lowercased and deduplicated.
func validateInput(in Input) (Input, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Input{}, fmt.Errorf("product title is required: %w", shared.ErrValidation)
	}

	if in.Status == "" {
		in.Status = StatusDraft
	}
	if !in.Status.Valid() {
		return Input{}, fmt.Errorf("unknown product status %q: %w", in.Status, shared.ErrValidation)
	}

	if in.Price < 0 {
		return Input{}, fmt.Errorf("price must not be negative: %w", shared.ErrValidation)
	}
	if in.CompareAtPrice != nil && *in.CompareAtPrice < 0 {
		return Input{}, fmt.Errorf("compare-at price must not be negative: %w", shared.ErrValidation)
	}

	if in.Currency == "" {
		in.Currency = "USD"
	}
	in.Currency = strings.ToUpper(in.Currency)
	if len(in.Currency) != 3 {
		return Input{}, fmt.Errorf("currency must be a 3-letter code: %w", shared.ErrValidation)
	}

	if in.InventoryPolicy == "" {
		in.InventoryPolicy = InventoryDeny
	}
	if in.InventoryPolicy != InventoryDeny && in.InventoryPolicy != InventoryContinue {
		return Input{}, fmt.Errorf("unknown inventory policy %q: %w", in.InventoryPolicy, shared.ErrValidation)
	}

	if len(in.Variants) > 0 {
		primaries := 0
		for _, v := range in.Variants {
			if strings.TrimSpace(v.SKU) == "" {
				return Input{}, fmt.Errorf("variant sku is required: %w", shared.ErrValidation)
			}
			if v.IsPrimary {
				primaries++
			}
		}
		if primaries != 1 {
			return Input{}, fmt.Errorf("exactly one variant must be primary, got %d: %w", primaries, shared.ErrValidation)
		}
	}

	primaryLinks := 0
	for _, link := range in.Categories {
		if link.CategoryID <= 0 {
			return Input{}, fmt.Errorf("invalid category id %d: %w", link.CategoryID, shared.ErrValidation)
		}
		if link.IsPrimary {
			primaryLinks++
		}
	}
	if primaryLinks > 1 {
		return Input{}, fmt.Errorf("at most one category association may be primary: %w", shared.ErrValidation)
	}

	in.SearchKeywords = normalizeKeywords(in.SearchKeywords)
	return in, nil
}

// normalizeKeywords lowercases, trims, deduplicates and sorts the keyword set.
func normalizeKeywords(keywords []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}
