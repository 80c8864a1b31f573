package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

func TestAmountDecodesNumbersAndStrings(t *testing.T) {
	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"100.0000","c":null}`), &v))
	assert.Equal(t, Amount(12.5), v.A)
	assert.Equal(t, Amount(100), v.B)
	assert.Equal(t, Amount(0), v.C)
	assert.Equal(t, "100.00", v.B.String())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"ten"}`), &v))
}

func TestAmountComparison(t *testing.T) {
	assert.True(t, AmountsEqual(0.1+0.2, 0.3))
	assert.True(t, AmountAtLeast(100, 99.99))
	assert.False(t, AmountAtLeast(99.99, 100))
	assert.Equal(t, Amount(100), SumAmounts(33.33, 33.33, 33.34))
}

func TestChargeIsCanceled(t *testing.T) {
	tests := []struct {
		name    string
		refunds []Amount
		want    bool
	}{
		{"no refunds", nil, false},
		{"partial", []Amount{33.33, 33.33}, false},
		{"thirds sum to the amount", []Amount{33.33, 33.33, 33.34}, true},
		{"over refunded", []Amount{60, 60}, true},
		{"one cent short", []Amount{50, 49.99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewCharge(100, "EUR", "")
			ch.ID = "s-chg-1"
			for _, a := range tt.refunds {
				ch.AddCancellation(ch.NewCancellation(a))
			}
			assert.Equal(t, tt.want, ch.IsCanceled())
		})
	}
}

func TestChargeCancellationDuplicateIDIgnored(t *testing.T) {
	ch := NewCharge(10, "EUR", "")
	cn := ch.NewCancellation(5)
	cn.ID = "s-cnl-1"
	ch.AddCancellation(cn)
	ch.AddCancellation(cn)
	assert.Len(t, ch.Cancellations, 1)
	assert.Same(t, cn, ch.LastCancellation())
}

func TestChargeHandleResponseIgnoresFailedCreate(t *testing.T) {
	ch := NewCharge(10, "EUR", "https://shop/return")
	body := []byte(`{"id":"s-chg-1","isSuccess":false,"isPending":false,"isError":true,"amount":"10.0000"}`)
	require.NoError(t, ch.HandleResponse(body, MethodPost))
	assert.Empty(t, ch.ID)
	assert.False(t, ch.IsError())

	require.NoError(t, ch.HandleResponse(body, MethodGet))
	assert.Equal(t, "s-chg-1", ch.ID)
	assert.True(t, ch.IsError())
}

func TestChargeHandleResponseAdoptsPayment(t *testing.T) {
	ch := NewCharge(10, "EUR", "https://shop/return")
	body := []byte(`{
		"id":"s-chg-1","isSuccess":false,"isPending":true,"isError":false,
		"redirectUrl":"https://x",
		"processing":{"uniqueId":"u-1","shortId":"1.2.3"},
		"message":{"code":"COR.000.200.000","customer":"ok","merchant":"ok"},
		"resources":{"paymentId":"p-1","typeId":"s-crd-1"},
		"unknownField":true
	}`)
	require.NoError(t, ch.HandleResponse(body, MethodPost))
	assert.Equal(t, "p-1", ch.PaymentID())
	assert.Equal(t, "https://x", ch.RedirectURL)
	assert.True(t, ch.IsPending())
	assert.Equal(t, "u-1", ch.Processing.UniqueID)
	assert.Equal(t, "https://shop/return", ch.ReturnURL)

	pay := NewPayment()
	pay.Attach(ch)
	assert.Equal(t, "p-1", pay.ID)
	assert.Equal(t, "https://x", pay.RedirectURL)
	assert.Same(t, ch, pay.Charge("s-chg-1"))
}

func TestChargeLinkedResources(t *testing.T) {
	ch := NewCharge(10, "EUR", "")
	_, err := ch.LinkedResources()
	assert.True(t, errors.Is(err, payerr.ErrMissingResource))

	ch.Type = NewCard()
	ch.Customer = NewCustomer("Max", "Mustermann")
	links, err := ch.LinkedResources()
	require.NoError(t, err)
	assert.Len(t, links, 2)

	ch.Type.SetResourceID("s-crd-1")
	ch.Customer.ID = "s-cst-1"
	raw, err := json.Marshal(ch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":10,"currency":"EUR","resources":{"customerId":"s-cst-1","typeId":"s-crd-1"}}`, string(raw))
}

func TestCancellationPath(t *testing.T) {
	ch := NewCharge(10, "EUR", "")
	ch.ID = "s-chg-1"
	_, err := ch.NewCancellation(5).LinkedResources()
	assert.True(t, errors.Is(err, payerr.ErrMissingResource))

	ch.BindPayment("s-pay-1")
	cn := ch.NewCancellation(5)
	_, err = cn.LinkedResources()
	require.NoError(t, err)
	assert.Equal(t, "payments/s-pay-1/charges/s-chg-1/cancels", cn.CollectionPath())
	assert.True(t, cn.IsRefund())

	auth := NewAuthorization(10, "EUR", "")
	auth.ID = "s-aut-1"
	auth.BindPayment("s-pay-1")
	assert.Equal(t, "payments/s-pay-1/authorize/s-aut-1/cancels", auth.NewCancellation(0).CollectionPath())
	assert.Equal(t, "payments/authorize", NewAuthorization(1, "EUR", "").CollectionPath())
}

func TestPaymentReconcilesTransactions(t *testing.T) {
	pay := NewPayment()
	known := NewCharge(50, "EUR", "")
	known.ID = "s-chg-1"
	pay.Charges = append(pay.Charges, known)

	body := []byte(`{
		"id":"s-pay-1",
		"state":{"id":3,"name":"partly"},
		"amount":{"total":"100.0000","charged":"50.0000","canceled":"10.0000","remaining":"40.0000","currency":"EUR"},
		"currency":"EUR",
		"orderId":"o-1",
		"resources":{"customerId":"s-cst-1","typeId":"s-crd-1"},
		"transactions":[
			{"date":"2026-01-01 10:00:00","type":"authorize","status":"success","url":"https://api/v1/payments/s-pay-1/authorize/s-aut-1","amount":"100.0000"},
			{"date":"2026-01-01 10:01:00","type":"charge","status":"success","url":"https://api/v1/payments/s-pay-1/charges/s-chg-1","amount":"50.0000"},
			{"date":"2026-01-01 10:02:00","type":"cancel-charge","status":"success","url":"https://api/v1/payments/s-pay-1/charges/s-chg-1/cancels/s-cnl-1","amount":"10.0000"},
			{"date":"2026-01-01 10:03:00","type":"cancel-authorize","status":"pending","url":"https://api/v1/payments/s-pay-1/authorize/s-aut-1/cancels/s-cnl-2","amount":"5.0000"},
			{"date":"2026-01-01 10:04:00","type":"shipment","status":"success","url":"https://api/v1/payments/s-pay-1/shipments/s-shp-1","amount":"50.0000"},
			{"type":"chargeback","url":"https://api/v1/payments/s-pay-1/chargebacks/s-cbk-1"}
		]
	}`)
	require.NoError(t, pay.HandleResponse(body, MethodGet))

	assert.Equal(t, "s-pay-1", pay.ID)
	assert.Equal(t, StatePartlyPaid, pay.State)
	assert.Equal(t, Amount(40), pay.Amount.Remaining)
	assert.Equal(t, "s-cst-1", pay.References.CustomerID)

	require.Len(t, pay.Charges, 1)
	assert.Same(t, known, pay.Charges[0])
	assert.True(t, known.IsSuccess())
	assert.Equal(t, "s-pay-1", known.PaymentID())
	require.Len(t, known.Cancellations, 1)
	assert.Equal(t, "s-cnl-1", known.Cancellations[0].ID)
	assert.Equal(t, "s-chg-1", known.Cancellations[0].ParentID())

	require.NotNil(t, pay.Authorization)
	assert.Equal(t, "s-aut-1", pay.Authorization.ID)
	require.Len(t, pay.Authorization.Cancellations, 1)
	assert.True(t, pay.Authorization.Cancellations[0].IsPending())

	require.Len(t, pay.Shipments, 1)
	assert.Len(t, pay.Cancellations(), 2)

	// A second fetch updates in place.
	require.NoError(t, pay.HandleResponse(body, MethodGet))
	assert.Len(t, pay.Charges, 1)
	assert.Len(t, known.Cancellations, 1)
	assert.Len(t, pay.Shipments, 1)
}

func TestPaymentKeepsAuthorizationOnForeignReversal(t *testing.T) {
	pay := NewPayment()
	auth := NewAuthorization(100, "EUR", "")
	auth.ID = "s-aut-1"
	pay.Authorization = auth

	body := []byte(`{"id":"s-pay-1","transactions":[
		{"type":"cancel-authorize","status":"success","url":"https://api/v1/payments/s-pay-1/authorize/s-aut-9/cancels/s-cnl-1","amount":"5.0000"}
	]}`)
	require.NoError(t, pay.HandleResponse(body, MethodGet))

	assert.Same(t, auth, pay.Authorization)
	assert.Equal(t, "s-aut-1", pay.Authorization.ID)
	assert.Len(t, auth.Cancellations, 1)
}

func TestPaymentHandleResponseLeavesAbsentFields(t *testing.T) {
	pay := NewPayment()
	pay.OrderID = "o-1"
	pay.RedirectURL = "https://x"
	require.NoError(t, pay.HandleResponse([]byte(`{"id":"s-pay-1","state":{"id":1}}`), MethodGet))
	assert.Equal(t, "o-1", pay.OrderID)
	assert.Equal(t, "https://x", pay.RedirectURL)
	assert.Equal(t, StateCompleted, pay.State)
}

func TestPaymentTypeFromID(t *testing.T) {
	pt, err := NewPaymentTypeFromID("s-crd-abc")
	require.NoError(t, err)
	card, ok := pt.(*Card)
	require.True(t, ok)
	assert.Equal(t, "s-crd-abc", card.ID)
	assert.True(t, card.Capabilities().Has(CanAuthorize))

	pt, err = NewPaymentTypeFromID("p-hdd-1")
	require.NoError(t, err)
	assert.Equal(t, TypeInstallmentSecured, pt.TypeName())
	assert.False(t, pt.Capabilities().Has(CanCharge))

	for _, id := range []string{"s-zzz-1", "crd", ""} {
		_, err := NewPaymentTypeFromID(id)
		assert.True(t, errors.Is(err, payerr.ErrIllegalResourceType), id)
	}
}

func TestPaymentTypeCatalogIsComplete(t *testing.T) {
	for _, ti := range typeCatalog {
		pt := ti.build()
		assert.Equal(t, ti.name, pt.TypeName())
		assert.Equal(t, "types/"+ti.name, pt.CollectionPath())
		assert.NotZero(t, pt.Capabilities(), ti.name)
	}
	_, err := NewPaymentType("bitcoin")
	assert.Error(t, err)
}

func TestCardRoundTrip(t *testing.T) {
	yes := true
	card := NewCard()
	card.Number = "4711100000000000"
	card.ExpiryDate = "01/2030"
	card.CVC = "123"
	card.ThreeDS = &yes

	raw, err := json.Marshal(card)
	require.NoError(t, err)
	assert.JSONEq(t, `{"number":"4711100000000000","expiryDate":"01/2030","cvc":"123","3ds":true}`, string(raw))

	back := NewCard()
	require.NoError(t, back.HandleResponse(raw, MethodGet))
	assert.Equal(t, card, back)
}

func TestCardHandleResponseMapsCVV(t *testing.T) {
	card := NewCard()
	card.Holder = "Max"
	require.NoError(t, card.HandleResponse([]byte(`{"id":"s-crd-1","number":"471110******0000","cvv":"***","brand":"VISA"}`), MethodPost))
	assert.Equal(t, "s-crd-1", card.ID)
	assert.Equal(t, "***", card.CVC)
	assert.Equal(t, "VISA", card.Brand)
	assert.Equal(t, "Max", card.Holder)
}

func TestCustomerExternalID(t *testing.T) {
	c := NewCustomer("Max", "Mustermann")
	c.ExternalID = "shop-42"
	c.BillingAddress = &Address{City: "Berlin", Country: "DE"}

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstname":"Max","lastname":"Mustermann","customerId":"shop-42","billingAddress":{"city":"Berlin","country":"DE"}}`, string(raw))

	require.NoError(t, c.HandleResponse([]byte(`{"id":"s-cst-1","customerId":"shop-43","email":"max@example.com"}`), MethodPost))
	assert.Equal(t, "s-cst-1", c.ID)
	assert.Equal(t, "shop-43", c.ExternalID)
	assert.Equal(t, "max@example.com", c.Email)
	assert.Equal(t, "Berlin", c.BillingAddress.City)
}

func TestBasketReferenceIDs(t *testing.T) {
	b := NewBasket("o-1", "EUR", 30)
	require.NoError(t, b.AddItem(&BasketItem{Title: "a"}))
	require.NoError(t, b.AddItem(&BasketItem{Title: "b"}))
	require.NoError(t, b.AddItem(&BasketItem{Title: "c", ReferenceID: "sku-1"}))
	assert.Equal(t, "0", b.Items[0].ReferenceID)
	assert.Equal(t, "1", b.Items[1].ReferenceID)

	err := b.AddItem(&BasketItem{ReferenceID: "sku-1"})
	assert.True(t, errors.Is(err, payerr.ErrDuplicateReference))
	assert.Len(t, b.Items, 3)

	b.Items = append(b.Items, &BasketItem{ReferenceID: "0"})
	_, err = b.LinkedResources()
	assert.True(t, errors.Is(err, payerr.ErrDuplicateReference))
}

func TestBasketMixedReferenceIDs(t *testing.T) {
	b := NewBasket("o-1", "EUR", 30)
	require.NoError(t, b.AddItem(&BasketItem{Title: "a", ReferenceID: "1"}))
	require.NoError(t, b.AddItem(&BasketItem{Title: "b"}))
	require.NoError(t, b.AddItem(&BasketItem{Title: "c"}))
	assert.Equal(t, "2", b.Items[1].ReferenceID)
	assert.Equal(t, "3", b.Items[2].ReferenceID)

	direct := NewBasket("o-2", "EUR", 20)
	direct.Items = []*BasketItem{{Title: "a"}, {Title: "b", ReferenceID: "0"}}
	_, err := direct.LinkedResources()
	require.NoError(t, err)
	assert.Equal(t, "1", direct.Items[0].ReferenceID)
	assert.Equal(t, "0", direct.Items[1].ReferenceID)
}

func TestMetadataResponse(t *testing.T) {
	m := NewMetadata().Set("shop", "berlin")
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"shop":"berlin"}`, string(raw))

	require.NoError(t, m.HandleResponse([]byte(`{"id":"s-mtd-1","shop":"berlin","count":3}`), MethodPost))
	assert.Equal(t, "s-mtd-1", m.ID)
	v, ok := m.Get("count")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestPaypage(t *testing.T) {
	p := NewPaypage(PaypageAuthorize, 10, "EUR", "https://shop/return")
	p.Type = NewCard()
	p.Customer = NewCustomer("Max", "Mustermann")
	links, err := p.LinkedResources()
	require.NoError(t, err)
	assert.NotContains(t, links, "type")
	assert.Equal(t, "paypage/authorize", p.CollectionPath())
	assert.Equal(t, APIPaypage, p.API())

	require.NoError(t, p.HandleResponse([]byte(`{"id":"s-ppg-1","redirectUrl":"https://pay/1","resources":{"paymentId":"s-pay-9"}}`), MethodPost))
	assert.Equal(t, "s-pay-9", p.PaymentID())
	assert.Equal(t, "https://pay/1", p.RedirectURL)
}

func TestParseResponse(t *testing.T) {
	r, err := ParseResponse(400, []byte(`{"id":"s-err-1","isError":true,"errors":[{"code":"API.320.200.145","merchantMessage":"m","customerMessage":"c"}]}`))
	require.NoError(t, err)
	assert.True(t, r.Failed())
	apiErr := r.APIError()
	assert.Equal(t, "API.320.200.145", apiErr.Code)
	assert.Equal(t, "s-err-1", apiErr.ErrorID)
	assert.Equal(t, 400, apiErr.StatusCode)

	r, err = ParseResponse(200, nil)
	require.NoError(t, err)
	assert.False(t, r.Failed())

	r, err = ParseResponse(200, []byte(`{"isError":true,"message":{"code":"COR.100"}}`))
	require.NoError(t, err)
	assert.False(t, r.Failed())
	assert.Equal(t, payerr.DefaultMerchantMessage, r.APIError().MerchantMessage)
}
