package domain

import "time"

type OrderPlacedItem struct {
	VariantID   string `json:"variant_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type OrderPlacedEvent struct {
	OrderID       string            `json:"order_id"`
	UserID        string            `json:"user_id,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty"`
	AccessToken   string            `json:"access_token,omitempty"`
	Items         []OrderPlacedItem `json:"items"`
	Total         int64             `json:"total"`
	Timestamp     time.Time         `json:"timestamp"`
}
