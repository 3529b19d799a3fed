package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/erpclient"
)

type stubErp struct {
	lines    []erpclient.Record
	partners []erpclient.Record
	products []erpclient.Record
	tmpls    []erpclient.Record
}

func (s *stubErp) SearchRead(ctx context.Context, model string, domain []interface{}, fields []string, limit int, order string) ([]erpclient.Record, error) {
	if model == "sale.order.line" {
		return s.lines, nil
	}
	return nil, nil
}

func (s *stubErp) Read(ctx context.Context, model string, ids []int, fields []string) ([]erpclient.Record, error) {
	switch model {
	case "res.partner":
		return s.partners, nil
	case "product.product":
		return s.products, nil
	case "product.template":
		return s.tmpls, nil
	}
	return nil, nil
}

func TestFetchBatchData_BatchesPartnersLinesAndProducts(t *testing.T) {
	erp := &stubErp{
		lines: []erpclient.Record{
			{"order_id": []interface{}{float64(1), "SO1"}, "product_id": []interface{}{float64(10), "Widget"}, "product_uom_qty": float64(2), "name": "Widget"},
		},
		partners: []erpclient.Record{
			{"id": float64(100), "name": "Acme"},
		},
		products: []erpclient.Record{
			{"id": float64(10), "default_code": "WID-1", "product_tmpl_id": []interface{}{float64(50), "Widget Template"}},
		},
		tmpls: []erpclient.Record{
			{"id": float64(50), "default_code": "TMPL-1"},
		},
	}

	orders := []erpclient.Record{
		{"id": float64(1), "partner_id": []interface{}{float64(100), "Acme"}, "partner_shipping_id": false},
	}

	batch, err := FetchBatchData(context.Background(), erp, orders)
	require.NoError(t, err)

	assert.Contains(t, batch.Partners, 100)
	assert.Contains(t, batch.Products, 10)
	assert.Contains(t, batch.Templates, 50)
	assert.Len(t, batch.LinesByOrder[1], 1)
}

func TestMapOrderToWebhookPayload_DropsZeroQuantityLines(t *testing.T) {
	batch := &BatchData{
		Partners:  map[int]erpclient.Record{1: {"name": "Acme", "email": "a@example.com"}},
		Products:  map[int]erpclient.Record{},
		Templates: map[int]erpclient.Record{},
		LinesByOrder: map[int][]erpclient.Record{
			1: {
				{"product_id": false, "product_uom_qty": float64(0), "name": "dropped"},
				{"product_id": false, "product_uom_qty": float64(3), "name": "kept", "price_unit": float64(9.5)},
			},
		},
	}
	order := erpclient.Record{
		"id": float64(1), "name": "SO1", "partner_id": []interface{}{float64(1), "Acme"}, "partner_shipping_id": false,
	}

	payload := MapOrderToWebhookPayload(order, batch, "mydb", 42)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "kept", payload.Items[0].Name)
	assert.Equal(t, 42, payload.ConnectionID)
	assert.Equal(t, "mydb", payload.OdooDB)
}

func TestMapOrderToWebhookPayload_ShippingFallsBackToCustomer(t *testing.T) {
	batch := &BatchData{
		Partners:     map[int]erpclient.Record{1: {"name": "Acme"}},
		Products:     map[int]erpclient.Record{},
		Templates:    map[int]erpclient.Record{},
		LinesByOrder: map[int][]erpclient.Record{},
	}
	order := erpclient.Record{
		"id": float64(1), "partner_id": []interface{}{float64(1), "Acme"}, "partner_shipping_id": false,
	}

	payload := MapOrderToWebhookPayload(order, batch, "db", 1)
	assert.Equal(t, payload.Customer, payload.ShippingAddress)
}

func TestResolveSKU_FallbackChain(t *testing.T) {
	cases := []struct {
		name     string
		product  erpclient.Record
		template erpclient.Record
		want     string
	}{
		{"default_code wins", erpclient.Record{"default_code": "ABC", "barcode": "999"}, nil, "ABC"},
		{"barcode when no default_code", erpclient.Record{"default_code": "", "barcode": "999"}, nil, "999"},
		{"template default_code when no product", nil, erpclient.Record{"default_code": "TPL-1"}, "TPL-1"},
		{"synthetic SKU as last resort", erpclient.Record{"default_code": "", "barcode": ""}, erpclient.Record{"default_code": ""}, "ODOO-mydb-7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveSKU(tc.product, tc.template, "mydb", 7)
			assert.Equal(t, tc.want, got)
		})
	}
}
