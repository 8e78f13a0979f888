package products

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the product lifecycle state.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// InventoryPolicy controls selling past zero stock.
type InventoryPolicy string

const (
	InventoryDeny     InventoryPolicy = "DENY"
	InventoryContinue InventoryPolicy = "CONTINUE"
)

// Product is a sellable catalog item.
type Product struct {
	ID              int64                     `json:"id"`
	PublicID        uuid.UUID                 `json:"public_id"`
	Title           string                    `json:"title"`
	Slug            string                    `json:"slug"`
	Status          Status                    `json:"status"`
	Price           float64                   `json:"price"`
	CompareAtPrice  *float64                  `json:"compare_at_price"`
	Currency        string                    `json:"currency"`
	InventoryPolicy InventoryPolicy           `json:"inventory_policy"`
	SearchKeywords  []string                  `json:"search_keywords"`
	Attributes      map[string]AttributeValue `json:"attributes"`
	Variants        []Variant                 `json:"variants"`
	DeletedAt       *time.Time                `json:"deleted_at"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// Variant overrides pricing and stock for one sellable option of a product.
// Exactly one variant per product carries IsPrimary.
type Variant struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	SKU       string   `json:"sku"`
	Price     *float64 `json:"price"`
	Stock     int      `json:"stock"`
	IsPrimary bool     `json:"is_primary"`
}

// AttributeKind tags the type carried by an AttributeValue.
type AttributeKind int

const (
	AttributeString AttributeKind = iota
	AttributeStringList
	AttributeNumber
)

// AttributeValue is a tagged union for the open attributes map: a string, a
// list of strings, or a number. Faceted filtering matches on the tag rather
// than sniffing a dynamically typed field.
type AttributeValue struct {
	Kind AttributeKind
	Str  string
	List []string
	Num  float64
}

// StringAttr builds a string-valued attribute.
func StringAttr(s string) AttributeValue {
	return AttributeValue{Kind: AttributeString, Str: s}
}

// ListAttr builds a string-list attribute.
func ListAttr(values ...string) AttributeValue {
	return AttributeValue{Kind: AttributeStringList, List: values}
}

// NumberAttr builds a numeric attribute.
func NumberAttr(n float64) AttributeValue {
	return AttributeValue{Kind: AttributeNumber, Num: n}
}

// MarshalJSON renders the union as its plain JSON value, which is also the
// shape stored in the products.attributes jsonb column.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AttributeString:
		return json.Marshal(v.Str)
	case AttributeStringList:
		return json.Marshal(v.List)
	case AttributeNumber:
		return json.Marshal(v.Num)
	}
	return nil, fmt.Errorf("attribute value: unknown kind %d", v.Kind)
}

// UnmarshalJSON re-tags a plain JSON value.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringAttr(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = ListAttr(list...)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberAttr(n)
		return nil
	}
	return fmt.Errorf("attribute value: unsupported JSON shape %s", string(data))
}
