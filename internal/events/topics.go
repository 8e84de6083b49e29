package events

// Topic constants for domain events emitted by the service.
const (
	TopicLightningSale   = "promo.lightning_sale"
	TopicRecommendedSale = "promo.recommended_sale"
)

// DefaultTopics returns every topic the service emits.
func DefaultTopics() []string {
	return []string{
		TopicLightningSale,
		TopicRecommendedSale,
	}
}

// SalePayload describes a product whose promotional flags just changed.
type SalePayload struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	UnitPrice    int64  `json:"unitPrice"`
	CurrentPrice int64  `json:"currentPrice"`
	Label        string `json:"label"`
}
