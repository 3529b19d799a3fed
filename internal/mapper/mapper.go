package mapper

import (
	"context"
	"fmt"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/erpclient"
)

// OrderLineFields and PartnerFields mirror exactly the field lists the
// original mapper requests, so the batched lookups stay minimal.
var (
	OrderLineFields = []string{
		"order_id", "product_id", "product_template_id", "product_uom_qty",
		"price_unit", "price_subtotal", "price_total", "discount", "name",
	}
	PartnerFields = []string{
		"name", "email", "phone", "street", "street2", "city", "state_id",
		"zip", "country_id", "vat",
	}
	ProductFields  = []string{"name", "default_code", "barcode", "product_tmpl_id"}
	TemplateFields = []string{"name", "default_code"}
)

// BatchData carries every related-entity lookup fetch_batch_data performs,
// keyed by ERP id, plus an index of order lines by order id.
type BatchData struct {
	Partners     map[int]erpclient.Record
	Products     map[int]erpclient.Record
	Templates    map[int]erpclient.Record
	LinesByOrder map[int][]erpclient.Record
}

type erpReader interface {
	SearchRead(ctx context.Context, model string, domain []interface{}, fields []string, limit int, order string) ([]erpclient.Record, error)
	Read(ctx context.Context, model string, ids []int, fields []string) ([]erpclient.Record, error)
}

// FetchBatchData performs the three batched lookups the mapping needs:
// partners for the union of partner_id/partner_shipping_id, order lines
// for the given orders, and products (plus their templates) for the
// union of line product_ids.
func FetchBatchData(ctx context.Context, erp erpReader, orders []erpclient.Record) (*BatchData, error) {
	partnerIDs := map[int]struct{}{}
	orderIDs := make([]int, 0, len(orders))

	for _, order := range orders {
		if id, ok := refID(order["partner_id"]); ok {
			partnerIDs[id] = struct{}{}
		}
		if id, ok := refID(order["partner_shipping_id"]); ok {
			partnerIDs[id] = struct{}{}
		}
		if id, ok := toInt(order["id"]); ok {
			orderIDs = append(orderIDs, id)
		}
	}

	var allLines []erpclient.Record
	if len(orderIDs) > 0 {
		domain := []interface{}{
			[]interface{}{"order_id", "in", intSliceToInterface(orderIDs)},
		}
		lines, err := erp.SearchRead(ctx, "sale.order.line", domain, OrderLineFields, 0, "")
		if err != nil {
			return nil, fmt.Errorf("mapper: fetch order lines: %w", err)
		}
		allLines = lines
	}

	lineProductIDs := map[int]struct{}{}
	for _, line := range allLines {
		if id, ok := refID(line["product_id"]); ok {
			lineProductIDs[id] = struct{}{}
		}
	}

	batch := &BatchData{
		Partners:     map[int]erpclient.Record{},
		Products:     map[int]erpclient.Record{},
		Templates:    map[int]erpclient.Record{},
		LinesByOrder: map[int][]erpclient.Record{},
	}

	if len(partnerIDs) > 0 {
		partners, err := erp.Read(ctx, "res.partner", setToSlice(partnerIDs), PartnerFields)
		if err != nil {
			return nil, fmt.Errorf("mapper: fetch partners: %w", err)
		}
		for _, p := range partners {
			if id, ok := toInt(p["id"]); ok {
				batch.Partners[id] = p
			}
		}
	}

	if len(lineProductIDs) > 0 {
		products, err := erp.Read(ctx, "product.product", setToSlice(lineProductIDs), ProductFields)
		if err != nil {
			return nil, fmt.Errorf("mapper: fetch products: %w", err)
		}

		templateIDs := map[int]struct{}{}
		for _, p := range products {
			if id, ok := toInt(p["id"]); ok {
				batch.Products[id] = p
			}
			if tid, ok := refID(p["product_tmpl_id"]); ok {
				templateIDs[tid] = struct{}{}
			}
		}

		if len(templateIDs) > 0 {
			templates, err := erp.Read(ctx, "product.template", setToSlice(templateIDs), TemplateFields)
			if err != nil {
				return nil, fmt.Errorf("mapper: fetch templates: %w", err)
			}
			for _, t := range templates {
				if id, ok := toInt(t["id"]); ok {
					batch.Templates[id] = t
				}
			}
		}
	}

	for _, line := range allLines {
		if oid, ok := refID(line["order_id"]); ok {
			batch.LinesByOrder[oid] = append(batch.LinesByOrder[oid], line)
		}
	}

	return batch, nil
}

// MapOrderToWebhookPayload builds the canonical outbound payload for one
// order, dropping zero-quantity lines and resolving the SKU fallback chain.
func MapOrderToWebhookPayload(order erpclient.Record, batch *BatchData, odooDB string, connectionID int) Payload {
	partnerID, _ := refID(order["partner_id"])
	shippingID, _ := refID(order["partner_shipping_id"])

	customer := formatPartner(batch.Partners[partnerID])
	shipping := formatPartner(batch.Partners[shippingID])
	if shippingID == 0 {
		shipping = customer
	}

	orderID, _ := toInt(order["id"])
	lines := batch.LinesByOrder[orderID]

	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		qty := toFloat(line["product_uom_qty"])
		if qty == 0 {
			continue
		}

		productID, _ := refID(line["product_id"])
		var product, template erpclient.Record
		if productID != 0 {
			product = batch.Products[productID]
		}
		if product != nil {
			if tmplID, ok := refID(product["product_tmpl_id"]); ok && tmplID != 0 {
				template = batch.Templates[tmplID]
			}
		}

		items = append(items, Item{
			SKU:             resolveSKU(product, template, odooDB, productID),
			Name:            toString(line["name"]),
			Quantity:        qty,
			UnitPrice:       toFloat(line["price_unit"]),
			Subtotal:        toFloat(line["price_subtotal"]),
			Total:           toFloat(line["price_total"]),
			DiscountPercent: toFloat(line["discount"]),
			OdooProductID:   productID,
		})
	}

	return Payload{
		Source:       "odoo",
		ConnectionID: connectionID,
		OdooDB:       odooDB,
		Order: OrderHeader{
			ID:            orderID,
			Name:          toString(order["name"]),
			State:         toString(order["state"]),
			DateOrder:     toString(order["date_order"]),
			WriteDate:     toString(order["write_date"]),
			AmountUntaxed: toFloat(order["amount_untaxed"]),
			AmountTax:     toFloat(order["amount_tax"]),
			AmountTotal:   toFloat(order["amount_total"]),
			Currency:      refName(order["currency_id"]),
			Note:          toString(order["note"]),
		},
		Customer:        customer,
		ShippingAddress: shipping,
		Items:           items,
	}
}

func resolveSKU(product, template erpclient.Record, odooDB string, productID int) string {
	if product != nil {
		if code := toString(product["default_code"]); code != "" {
			return code
		}
		if barcode := toString(product["barcode"]); barcode != "" {
			return barcode
		}
	}
	if template != nil {
		if code := toString(template["default_code"]); code != "" {
			return code
		}
	}
	return fmt.Sprintf("ODOO-%s-%d", odooDB, productID)
}

func formatPartner(partner erpclient.Record) Party {
	if partner == nil {
		return Party{}
	}
	return Party{
		Name:  toString(partner["name"]),
		Email: toString(partner["email"]),
		Phone: toString(partner["phone"]),
		TaxID: toString(partner["vat"]),
		Address: Address{
			Street:  toString(partner["street"]),
			Street2: toString(partner["street2"]),
			City:    toString(partner["city"]),
			State:   refName(partner["state_id"]),
			Zip:     toString(partner["zip"]),
			Country: refName(partner["country_id"]),
		},
	}
}

func refID(v interface{}) (int, bool) {
	ref, err := erpclient.ParseRef(v)
	if err != nil || !ref.Present() {
		return 0, false
	}
	return ref.ID(), true
}

func refName(v interface{}) string {
	ref, err := erpclient.ParseRef(v)
	if err != nil || !ref.Present() {
		return ""
	}
	return ref.Name()
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func setToSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func intSliceToInterface(ids []int) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
