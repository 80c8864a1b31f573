package mockgateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "s-priv-test"

type harness struct {
	t   *testing.T
	srv *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := httptest.NewServer(New(Options{PrivateKey: testKey}).Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv}
}

func basic(key string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(key+":"))
}

func (h *harness) do(method, path, auth string, body any) (int, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+"/v1/"+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Authorization", auth)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) call(method, path string, body any) (int, map[string]any) {
	return h.do(method, path, basic(testKey), body)
}

func (h *harness) card(t *testing.T) string {
	code, doc := h.call("POST", "types/card", map[string]any{
		"number": "4711100000000000", "expiryDate": "01/2030", "cvc": "123",
	})
	require.Equal(t, http.StatusOK, code)
	return doc["id"].(string)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	code, doc := h.do("POST", "types/card", basic("wrong"), map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, true, doc["isError"])

	code, _ = h.do("POST", "types/card", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateCardMasksNumber(t *testing.T) {
	h := newHarness(t)
	id := h.card(t)
	assert.Regexp(t, `^s-crd-[0-9a-f]{12}$`, id)

	code, doc := h.call("GET", "types/card/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "471110******0000", doc["number"])
	assert.Equal(t, "***", doc["cvc"])
	assert.Equal(t, "VISA", doc["brand"])

	code, _ = h.call("GET", "types/paypal/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownTypeRejected(t *testing.T) {
	h := newHarness(t)
	code, _ := h.call("POST", "types/bitcoin", map[string]any{})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestChargeAndRefund(t *testing.T) {
	h := newHarness(t)
	typeID := h.card(t)

	code, ch := h.call("POST", "payments/charges", map[string]any{
		"amount": 100.0, "currency": "EUR", "returnUrl": "https://shop",
		"resources": map[string]any{"typeId": typeID},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, ch["isSuccess"])
	assert.Equal(t, "100.0000", ch["amount"])
	pid := ch["resources"].(map[string]any)["paymentId"].(string)
	cid := ch["id"].(string)

	code, cn := h.call("POST", "payments/"+pid+"/charges/"+cid+"/cancels", map[string]any{"amount": 40.0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "40.0000", cn["amount"])

	code, _ = h.call("POST", "payments/"+pid+"/charges/"+cid+"/cancels", map[string]any{"amount": 70.0})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	// no amount refunds the rest
	code, rest := h.call("POST", "payments/"+pid+"/charges/"+cid+"/cancels", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "60.0000", rest["amount"])

	code, pay := h.call("GET", "payments/"+pid, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "canceled", pay["state"].(map[string]any)["name"])
	amounts := pay["amount"].(map[string]any)
	assert.Equal(t, "100.0000", amounts["charged"])
	assert.Equal(t, "100.0000", amounts["canceled"])
	assert.Len(t, pay["transactions"], 3)

	code, _ = h.call("GET", "payments/"+pid+"/charges/"+cid+"/cancels/"+cn["id"].(string), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthorizeChargeAndReverse(t *testing.T) {
	h := newHarness(t)
	typeID := h.card(t)

	code, auth := h.call("POST", "payments/authorize", map[string]any{
		"amount": 50.0, "currency": "EUR", "returnUrl": "https://shop", "orderId": "o-1",
		"resources": map[string]any{"typeId": typeID},
	})
	require.Equal(t, http.StatusOK, code)
	pid := auth["resources"].(map[string]any)["paymentId"].(string)
	aid := auth["id"].(string)

	code, _ = h.call("POST", "payments/"+pid+"/charges", map[string]any{"amount": 20.0})
	require.Equal(t, http.StatusOK, code)

	code, _ = h.call("POST", "payments/"+pid+"/charges", map[string]any{"amount": 31.0})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, rev := h.call("POST", "payments/"+pid+"/authorize/"+aid+"/cancels", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "30.0000", rev["amount"])

	code, pay := h.call("GET", "payments/o-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, pid, pay["id"])
	amounts := pay["amount"].(map[string]any)
	assert.Equal(t, "50.0000", amounts["total"])
	assert.Equal(t, "0.0000", amounts["remaining"])
	assert.Equal(t, "completed", pay["state"].(map[string]any)["name"])
}

func TestMagicAmounts(t *testing.T) {
	h := newHarness(t)
	typeID := h.card(t)
	body := func(amount float64) map[string]any {
		return map[string]any{
			"amount": amount, "currency": "EUR", "returnUrl": "https://shop",
			"resources": map[string]any{"typeId": typeID},
		}
	}

	code, doc := h.call("POST", "payments/charges", body(666))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, doc["isError"])
	assert.NotEmpty(t, doc["errors"])
	assert.NotEmpty(t, doc["resources"].(map[string]any)["paymentId"])

	code, doc = h.call("POST", "payments/charges", body(999))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Nil(t, doc["resources"])
}

func TestRedirectTypesPending(t *testing.T) {
	h := newHarness(t)
	_, ppl := h.call("POST", "types/paypal", map[string]any{"email": "a@b.c"})

	code, doc := h.call("POST", "payments/charges", map[string]any{
		"amount": 10.0, "currency": "EUR", "returnUrl": "https://shop",
		"resources": map[string]any{"typeId": ppl["id"]},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, doc["isPending"])
	assert.Contains(t, doc["redirectUrl"], "/redirect/")
}

func TestCapabilityEnforced(t *testing.T) {
	h := newHarness(t)
	_, sdd := h.call("POST", "types/sepa-direct-debit", map[string]any{"iban": "DE89370400440532013000"})

	code, _ := h.call("POST", "payments/authorize", map[string]any{
		"amount": 10.0, "currency": "EUR", "returnUrl": "https://shop",
		"resources": map[string]any{"typeId": sdd["id"]},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestSchemaRejectsBadPayload(t *testing.T) {
	h := newHarness(t)
	code, _ := h.call("POST", "payments/charges", map[string]any{"amount": -1, "currency": "EUR"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCustomerByExternalID(t *testing.T) {
	h := newHarness(t)
	code, c := h.call("POST", "customers", map[string]any{"firstname": "Ada", "customerId": "c-42"})
	require.Equal(t, http.StatusOK, code)

	code, got := h.call("GET", "customers/c-42", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, c["id"], got["id"])

	code, _ = h.call("POST", "customers", map[string]any{"customerId": "c-42"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = h.call("DELETE", "customers/"+c["id"].(string), nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.call("GET", "customers/c-42", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPaypageNeedsBearer(t *testing.T) {
	h := newHarness(t)
	page := map[string]any{"amount": 25.0, "currency": "EUR", "returnUrl": "https://shop"}

	code, _ := h.call("POST", "paypage/charge", page)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, tok := h.call("POST", "auth/token", nil)
	require.Equal(t, http.StatusCreated, code)
	bearer := "Bearer " + tok["accessToken"].(string)

	code, doc := h.do("POST", "paypage/charge", bearer, page)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, doc["redirectUrl"], "/paypage/")
	pid := doc["resources"].(map[string]any)["paymentId"].(string)

	code, pay := h.call("GET", "payments/"+pid, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "25.0000", pay["amount"].(map[string]any)["total"])
	assert.Equal(t, "pending", pay["state"].(map[string]any)["name"])

	code, _ = h.do("GET", "paypage/charge/"+doc["id"].(string), bearer, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestTotals(t *testing.T) {
	p := &paymentRecord{}
	p.Txns = []*txnRecord{
		{Type: txCharge, Status: statusSuccess, Amount: toCents(33.33), ID: "a"},
		{Type: txCharge, Status: statusError, Amount: toCents(10), ID: "b"},
	}
	tt := p.totals()
	assert.Equal(t, cents(3333), tt.Total)
	assert.Equal(t, stateCompleted, tt.State)

	p.Txns = append(p.Txns, &txnRecord{Type: txCancelCharge, Status: statusSuccess, Amount: toCents(33.33), ParentID: "a"})
	assert.Equal(t, stateCanceled, p.totals().State)
	assert.Equal(t, "33.3300", toCents(33.33).String())
}
