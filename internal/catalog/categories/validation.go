package categories

import (
	"fmt"
	"strings"

	"github.com/atelier-commerce/atelier/internal/shared"
)

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("category name is required: %w", shared.ErrValidation)
	}
	if len(name) > 160 {
		return fmt.Errorf("category name exceeds 160 characters: %w", shared.ErrValidation)
	}
	return nil
}
