package categories

import "time"

// Category is a node in the materialized-path tree. Path always reflects the
// current ancestry ("/home/lighting") and Level always equals its depth.
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ParentID     *int64    `json:"parent_id"`
	Level        int       `json:"level"`
	Path         string    `json:"path"`
	DisplayOrder *int      `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TreeNode is a Category with its children nested for hierarchy rendering.
type TreeNode struct {
	Category
	ProductCount int         `json:"product_count"`
	Children     []*TreeNode `json:"children"`
}
