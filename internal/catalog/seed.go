package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// DefaultProducts returns the store's standard five-product catalog.
func DefaultProducts() []pricing.Product {
	return []pricing.Product{
		{ID: pricing.ProductKeyboard, Name: "Bug-Free Keyboard", UnitPrice: 10000, StockQuantity: 50},
		{ID: pricing.ProductMouse, Name: "Productivity Mouse", UnitPrice: 20000, StockQuantity: 30},
		{ID: pricing.ProductMonitorArm, Name: "Posture Monitor Arm", UnitPrice: 30000, StockQuantity: 20},
		{ID: pricing.ProductLaptopPouch, Name: "Error-Proof Laptop Pouch", UnitPrice: 15000, StockQuantity: 0},
		{ID: pricing.ProductSpeaker, Name: "Lo-Fi Coding Speaker", UnitPrice: 25000, StockQuantity: 10},
	}
}

type seedFile struct {
	Products []seedProduct `json:"products" validate:"required,min=1,dive"`
}

type seedProduct struct {
	ID                      string `json:"id" validate:"required,max=64"`
	Name                    string `json:"name" validate:"required,max=200"`
	UnitPrice               int64  `json:"unitPrice" validate:"gte=0"`
	StockQuantity           int    `json:"stockQuantity" validate:"gte=0"`
	IsFlashSaleActive       bool   `json:"isFlashSaleActive"`
	IsRecommendedSaleActive bool   `json:"isRecommendedSaleActive"`
}

// LoadSeed reads a catalog seed file. An empty path yields DefaultProducts.
func LoadSeed(path string) ([]pricing.Product, error) {
	if path == "" {
		return DefaultProducts(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

// DecodeSeed parses and validates a seed document of the form {"products":[...]}.
func DecodeSeed(r io.Reader) ([]pricing.Product, error) {
	var doc seedFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}
	out := make([]pricing.Product, 0, len(doc.Products))
	for _, p := range doc.Products {
		out = append(out, pricing.Product{
			ID:                      p.ID,
			Name:                    p.Name,
			UnitPrice:               p.UnitPrice,
			StockQuantity:           p.StockQuantity,
			IsFlashSaleActive:       p.IsFlashSaleActive,
			IsRecommendedSaleActive: p.IsRecommendedSaleActive,
		})
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}
