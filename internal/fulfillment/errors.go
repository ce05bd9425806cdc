package fulfillment

import (
	"fmt"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
)

func insufficientStock(shortfalls []domain.Shortfall) *apperr.Error {
	err := apperr.New(apperr.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"shortfalls": shortfalls})
	for _, s := range shortfalls {
		err.WithForm(fmt.Sprintf("%s: available %d, required %d", s.Name, s.Available, s.Required))
	}
	return err
}

func missingCombos(missing []string, empty []string) *apperr.Error {
	err := apperr.New(apperr.CodeMissingReference, "combos cannot be sold").
		WithDetails(map[string]any{"missingComboIds": missing, "emptyComboIds": empty})
	for _, id := range missing {
		err.WithForm(fmt.Sprintf("combo %s does not exist", id))
	}
	for _, id := range empty {
		err.WithForm(fmt.Sprintf("combo %s has no usable components", id))
	}
	return err
}

func missingProductsError(missing []string) *apperr.Error {
	err := apperr.New(apperr.CodeMissingReference, "products do not exist").
		WithDetails(map[string]any{"missingProductIds": missing})
	for _, id := range missing {
		err.WithForm(fmt.Sprintf("product %s does not exist", id))
	}
	return err
}
