package products

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Filter parametrizes product search. It is ephemeral: it feeds query
// composition and cache keys, never persistence. Zero-valued members are
// omitted from the generated query entirely rather than encoded as
// always-true clauses.
type Filter struct {
	Term              string                      `json:"term,omitempty"`
	Statuses          []Status                    `json:"statuses,omitempty"`
	PrimaryCategoryID *int64                      `json:"primaryCategoryId,omitempty"`
	CategoryIDs       []int64                     `json:"categoryIds,omitempty"`
	CategorySlug      string                      `json:"categorySlug,omitempty"`
	CollectionIDs     []int64                     `json:"collectionIds,omitempty"`
	PriceMin          *float64                    `json:"priceMin,omitempty"`
	PriceMax          *float64                    `json:"priceMax,omitempty"`
	Attributes        map[string][]AttributeValue `json:"attributes,omitempty"`
	IncludeDeleted    bool                        `json:"includeDeleted,omitempty"`
}

// buildWhere composes the WHERE clause for f using positional args, shared by
// the count, offset and keyset queries. Every present filter member yields
// one AND-ed clause; attribute values for one key are OR-ed together.
func buildWhere(f Filter) (string, []any) {
	query := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	next := func(value any) string {
		argCount++
		args = append(args, value)
		return "$" + strconv.Itoa(argCount)
	}

	if !f.IncludeDeleted {
		query += ` AND p.deleted_at IS NULL`
	}

	if term := strings.TrimSpace(f.Term); term != "" {
		like := next("%" + term + "%")
		kw := next(strings.ToLower(term))
		query += ` AND (p.title ILIKE ` + like + ` OR p.slug ILIKE ` + like + ` OR ` + kw + ` = ANY(p.search_keywords))`
	}

	switch len(f.Statuses) {
	case 0:
		// No status clause requested.
	case 1:
		query += ` AND p.status = ` + next(string(f.Statuses[0]))
	default:
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		query += ` AND p.status = ANY(` + next(statuses) + `)`
	}

	if f.PrimaryCategoryID != nil {
		query += ` AND EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = ` +
			next(*f.PrimaryCategoryID) + ` AND pc.is_primary)`
	} else if len(f.CategoryIDs) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = ANY(` +
			next(f.CategoryIDs) + `))`
	}

	if len(f.CollectionIDs) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM product_collections pl WHERE pl.product_id = p.id AND pl.collection_id = ANY(` +
			next(f.CollectionIDs) + `))`
	}

	if f.PriceMin != nil {
		query += ` AND p.price >= ` + next(*f.PriceMin)
	}
	if f.PriceMax != nil {
		query += ` AND p.price <= ` + next(*f.PriceMax)
	}

	if len(f.Attributes) > 0 {
		keys := make([]string, 0, len(f.Attributes))
		for k := range f.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			clause := attributeClause(key, f.Attributes[key], next)
			if clause != "" {
				query += ` AND ` + clause
			}
		}
	}

	return query, args
}

// attributeClause matches one attribute key against its requested values.
// String values use the jsonb ?| operator, which matches both a stored
// scalar string and membership in a stored string array; numeric values use
// jsonb containment. Multiple values for one key are OR-ed.
func attributeClause(key string, values []AttributeValue, next func(any) string) string {
	var strVals []string
	var parts []string

	for _, v := range values {
		switch v.Kind {
		case AttributeString:
			strVals = append(strVals, v.Str)
		case AttributeStringList:
			strVals = append(strVals, v.List...)
		case AttributeNumber:
			doc, err := json.Marshal(map[string]float64{key: v.Num})
			if err != nil {
				continue
			}
			parts = append(parts, `p.attributes @> `+next(string(doc))+`::jsonb`)
		}
	}
	if len(strVals) > 0 {
		parts = append(parts, `p.attributes->`+next(key)+` ?| `+next(strVals))
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return `(` + strings.Join(parts, ` OR `) + `)`
	}
}
