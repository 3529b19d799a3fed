// Package mapper turns raw ERP sale-order records into the outbound
// webhook document, batching the related partner/line/product lookups
// the mapping needs.
package mapper

// Address is the postal address embedded in Customer/ShippingAddress.
type Address struct {
	Street  string `json:"street"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Party is a customer or shipping-address party.
type Party struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	TaxID   string  `json:"tax_id"`
	Address Address `json:"address"`
}

// OrderHeader is the order-level slice of the webhook payload.
type OrderHeader struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	State         string  `json:"state"`
	DateOrder     string  `json:"date_order"`
	WriteDate     string  `json:"write_date"`
	AmountUntaxed float64 `json:"amount_untaxed"`
	AmountTax     float64 `json:"amount_tax"`
	AmountTotal   float64 `json:"amount_total"`
	Currency      string  `json:"currency"`
	Note          string  `json:"note"`
}

// Item is one order line in the outbound payload.
type Item struct {
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	Subtotal        float64 `json:"subtotal"`
	Total           float64 `json:"total"`
	DiscountPercent float64 `json:"discount_percent"`
	OdooProductID   int     `json:"odoo_product_id"`
}

// Payload is the exact outbound webhook document.
type Payload struct {
	Source           string      `json:"source"`
	ConnectionID     int         `json:"connection_id"`
	OdooDB           string      `json:"odoo_db"`
	Order            OrderHeader `json:"order"`
	Customer         Party       `json:"customer"`
	ShippingAddress  Party       `json:"shipping_address"`
	Items            []Item      `json:"items"`
}
