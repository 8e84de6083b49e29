package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is reported when a cart line references a product missing from the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidQuantity is reported when a cart line carries a quantity of zero or less.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Diagnostic describes a cart line the engine skipped.
type Diagnostic struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Code      string `json:"code"`
	Err       error  `json:"-"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %q (qty %d): %v", d.ProductID, d.Quantity, d.Err)
}

// Unwrap exposes the sentinel error for errors.Is.
func (d Diagnostic) Unwrap() error { return d.Err }

func productNotFound(line CartLine) Diagnostic {
	return Diagnostic{ProductID: line.ProductID, Quantity: line.Quantity, Code: "PRODUCT_NOT_FOUND", Err: ErrProductNotFound}
}

func invalidQuantity(line CartLine) Diagnostic {
	return Diagnostic{ProductID: line.ProductID, Quantity: line.Quantity, Code: "INVALID_QUANTITY", Err: ErrInvalidQuantity}
}

func joinDiagnostics(diags []Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	errs := make([]error, 0, len(diags))
	for _, d := range diags {
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}
