package products

// VariantInput carries one variant in a create/update payload.
type VariantInput struct {
	SKU       string   `json:"sku" validate:"required,max=64"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock     int      `json:"stock" validate:"gte=0"`
	IsPrimary bool     `json:"isPrimary"`
}

// Input carries the fields accepted when creating or updating a product.
// Slug is an optional explicit candidate; when empty the title is slugged.
type Input struct {
	Title           string                    `json:"title" validate:"required,max=200"`
	Slug            string                    `json:"slug" validate:"omitempty,max=200"`
	Status          Status                    `json:"status"`
	Price           float64                   `json:"price" validate:"gte=0"`
	CompareAtPrice  *float64                  `json:"compareAtPrice" validate:"omitempty,gte=0"`
	Currency        string                    `json:"currency" validate:"omitempty,len=3"`
	InventoryPolicy InventoryPolicy           `json:"inventoryPolicy"`
	SearchKeywords  []string                  `json:"searchKeywords" validate:"max=50"`
	Attributes      map[string]AttributeValue `json:"attributes"`
	Variants        []VariantInput            `json:"variants" validate:"dive"`
	Categories      []CategoryLink            `json:"categories"`
	Collections     []int64                   `json:"collections"`
}

func (in Input) toProduct() Product {
	variants := make([]Variant, len(in.Variants))
	for i, v := range in.Variants {
		variants[i] = Variant{SKU: v.SKU, Price: v.Price, Stock: v.Stock, IsPrimary: v.IsPrimary}
	}
	attrs := in.Attributes
	if attrs == nil {
		attrs = map[string]AttributeValue{}
	}
	return Product{
		Title:           in.Title,
		Status:          in.Status,
		Price:           in.Price,
		CompareAtPrice:  in.CompareAtPrice,
		Currency:        in.Currency,
		InventoryPolicy: in.InventoryPolicy,
		SearchKeywords:  in.SearchKeywords,
		Attributes:      attrs,
		Variants:        variants,
	}
}
