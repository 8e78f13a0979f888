package collections

import (
	"fmt"
	"strings"

	"github.com/atelier-commerce/atelier/internal/shared"
)

// Input carries the fields accepted when creating or updating a collection.
type Input struct {
	Name        string `json:"name" validate:"required,max=160"`
	Slug        string `json:"slug" validate:"omitempty,max=160"`
	Description string `json:"description" validate:"max=2000"`
	IsFeatured  bool   `json:"isFeatured"`
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("collection name is required: %w", shared.ErrValidation)
	}
	if len(input.Name) > 160 {
		return fmt.Errorf("collection name exceeds 160 characters: %w", shared.ErrValidation)
	}
	return nil
}
