package products

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildWhereEmptyFilter(t *testing.T) {
	where, args := buildWhere(Filter{})
	require.Equal(t, ` WHERE 1=1 AND p.deleted_at IS NULL`, where)
	require.Empty(t, args)

	where, args = buildWhere(Filter{IncludeDeleted: true})
	require.Equal(t, ` WHERE 1=1`, where)
	require.Empty(t, args)
}

func TestBuildWhereTermMatchesTitleSlugAndKeywords(t *testing.T) {
	where, args := buildWhere(Filter{Term: "  Aurora "})
	require.Contains(t, where, `p.title ILIKE $1`)
	require.Contains(t, where, `p.slug ILIKE $1`)
	require.Contains(t, where, `$2 = ANY(p.search_keywords)`)
	require.Equal(t, []any{"%Aurora%", "aurora"}, args)
}

func TestBuildWhereBlankTermOmitted(t *testing.T) {
	where, args := buildWhere(Filter{Term: "   "})
	require.NotContains(t, where, "ILIKE")
	require.Empty(t, args)
}

func TestBuildWhereStatusClauseShape(t *testing.T) {
	where, args := buildWhere(Filter{Statuses: []Status{StatusActive}})
	require.Contains(t, where, `p.status = $1`)
	require.NotContains(t, where, "ANY")
	require.Equal(t, []any{"ACTIVE"}, args)

	where, args = buildWhere(Filter{Statuses: []Status{StatusActive, StatusDraft}})
	require.Contains(t, where, `p.status = ANY($1)`)
	require.Equal(t, []any{[]string{"ACTIVE", "DRAFT"}}, args)
}

func TestBuildWherePrimaryCategoryWinsOverSet(t *testing.T) {
	primary := int64(4)
	where, args := buildWhere(Filter{PrimaryCategoryID: &primary, CategoryIDs: []int64{1, 2}})
	require.Contains(t, where, `pc.is_primary`)
	require.Equal(t, 1, strings.Count(where, "product_categories"))
	require.Equal(t, []any{primary}, args)

	where, args = buildWhere(Filter{CategoryIDs: []int64{1, 2}})
	require.Contains(t, where, `pc.category_id = ANY($1)`)
	require.NotContains(t, where, "is_primary")
	require.Equal(t, []any{[]int64{1, 2}}, args)
}

func TestBuildWherePriceBoundsIndependent(t *testing.T) {
	min, max := 10.0, 99.5
	where, args := buildWhere(Filter{PriceMin: &min})
	require.Contains(t, where, `p.price >= $1`)
	require.NotContains(t, where, "<=")
	require.Equal(t, []any{min}, args)

	where, args = buildWhere(Filter{PriceMin: &min, PriceMax: &max})
	require.Contains(t, where, `p.price >= $1`)
	require.Contains(t, where, `p.price <= $2`)
	require.Equal(t, []any{min, max}, args)
}

func TestBuildWhereAttributeClauses(t *testing.T) {
	f := Filter{Attributes: map[string][]AttributeValue{
		"color":  {StringAttr("oak"), StringAttr("walnut")},
		"length": {NumberAttr(120)},
	}}
	where, args := buildWhere(f)

	// Keys contribute independent AND-ed clauses in sorted order.
	colorIdx := strings.Index(where, `?|`)
	numIdx := strings.Index(where, `@>`)
	require.Greater(t, colorIdx, 0)
	require.Greater(t, numIdx, 0)
	require.Less(t, colorIdx, numIdx, "color clause must precede length clause")

	require.Len(t, args, 3)
	require.Equal(t, "color", args[0])
	require.Equal(t, []string{"oak", "walnut"}, args[1])
	require.JSONEq(t, `{"length":120}`, args[2].(string))
}

func TestBuildWhereDeterministic(t *testing.T) {
	f := Filter{
		Term:     "lamp",
		Statuses: []Status{StatusActive},
		Attributes: map[string][]AttributeValue{
			"color":    {StringAttr("oak")},
			"material": {StringAttr("linen")},
			"width":    {NumberAttr(40)},
		},
	}
	whereA, argsA := buildWhere(f)
	whereB, argsB := buildWhere(f)
	require.Equal(t, whereA, whereB)
	require.Equal(t, argsA, argsB)
}

func TestBuildWhereCollections(t *testing.T) {
	where, args := buildWhere(Filter{CollectionIDs: []int64{9}})
	require.Contains(t, where, `product_collections`)
	require.Contains(t, where, `pl.collection_id = ANY($1)`)
	require.Equal(t, []any{[]int64{9}}, args)
}
