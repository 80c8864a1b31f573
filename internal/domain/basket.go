package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

// BasketItem is one line of a basket. ReferenceID must be unique within the
// basket.
type BasketItem struct {
	ReferenceID    string `json:"basketItemReferenceId,omitempty"`
	Title          string `json:"title,omitempty"`
	Quantity       int    `json:"quantity,omitempty"`
	Unit           string `json:"unit,omitempty"`
	AmountPerUnit  Amount `json:"amountPerUnit,omitempty"`
	AmountNet      Amount `json:"amountNet,omitempty"`
	AmountGross    Amount `json:"amountGross,omitempty"`
	AmountVat      Amount `json:"amountVat,omitempty"`
	AmountDiscount Amount `json:"amountDiscount,omitempty"`
	VAT            int    `json:"vat,omitempty"`
	Type           string `json:"type,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
	SubTitle       string `json:"subTitle,omitempty"`
}

// Basket is the item level breakdown attached to a transaction.
type Basket struct {
	Envelope

	OrderID          string        `json:"orderId,omitempty"`
	CurrencyCode     string        `json:"currencyCode,omitempty"`
	AmountTotalGross Amount        `json:"amountTotalGross,omitempty"`
	AmountTotalDisc  Amount        `json:"amountTotalDiscount,omitempty"`
	AmountTotalVat   Amount        `json:"amountTotalVat,omitempty"`
	Note             string        `json:"note,omitempty"`
	Items            []*BasketItem `json:"basketItems,omitempty"`
}

func NewBasket(orderID, currency string, totalGross Amount) *Basket {
	return &Basket{OrderID: orderID, CurrencyCode: currency, AmountTotalGross: totalGross}
}

func (b *Basket) Kind() string           { return "basket" }
func (b *Basket) API() API               { return APIPayment }
func (b *Basket) CollectionPath() string { return "baskets" }

// AddItem appends item. An empty reference id is set to the item's index, or
// the next index no other item uses.
func (b *Basket) AddItem(item *BasketItem) error {
	used := make(map[string]bool, len(b.Items))
	for _, it := range b.Items {
		used[it.ReferenceID] = true
	}
	if item.ReferenceID == "" {
		item.ReferenceID = freeReference(used, len(b.Items))
	}
	if used[item.ReferenceID] {
		return payerr.DuplicateReference(b.Kind(), item.ReferenceID)
	}
	b.Items = append(b.Items, item)
	return nil
}

func freeReference(used map[string]bool, i int) string {
	for used[strconv.Itoa(i)] {
		i++
	}
	return strconv.Itoa(i)
}

// Item returns the item with the given reference id, or nil.
func (b *Basket) Item(referenceID string) *BasketItem {
	for _, it := range b.Items {
		if it.ReferenceID == referenceID {
			return it
		}
	}
	return nil
}

// LinkedResources checks the item references: items appended directly get
// their index as reference id and duplicates are rejected.
func (b *Basket) LinkedResources() (Links, error) {
	seen := make(map[string]bool, len(b.Items))
	for _, it := range b.Items {
		if it.ReferenceID == "" {
			continue
		}
		if seen[it.ReferenceID] {
			return nil, payerr.DuplicateReference(b.Kind(), it.ReferenceID)
		}
		seen[it.ReferenceID] = true
	}
	for i, it := range b.Items {
		if it.ReferenceID == "" {
			it.ReferenceID = freeReference(seen, i)
			seen[it.ReferenceID] = true
		}
	}
	return Links{}, nil
}

type basketFields Basket

func (b *Basket) MarshalJSON() ([]byte, error) {
	return json.Marshal((*basketFields)(b))
}

// HandleResponse merges the response. Returned items replace local items
// with the same reference id and are appended otherwise.
func (b *Basket) HandleResponse(body []byte, _ Method) error {
	var r struct {
		ID               *string       `json:"id"`
		OrderID          *string       `json:"orderId"`
		CurrencyCode     *string       `json:"currencyCode"`
		AmountTotalGross *Amount       `json:"amountTotalGross"`
		AmountTotalDisc  *Amount       `json:"amountTotalDiscount"`
		AmountTotalVat   *Amount       `json:"amountTotalVat"`
		Note             *string       `json:"note"`
		Items            []*BasketItem `json:"basketItems"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("decode basket: %w", err)
	}
	if r.ID != nil {
		b.ID = *r.ID
	}
	if r.OrderID != nil {
		b.OrderID = *r.OrderID
	}
	if r.CurrencyCode != nil {
		b.CurrencyCode = *r.CurrencyCode
	}
	if r.AmountTotalGross != nil {
		b.AmountTotalGross = *r.AmountTotalGross
	}
	if r.AmountTotalDisc != nil {
		b.AmountTotalDisc = *r.AmountTotalDisc
	}
	if r.AmountTotalVat != nil {
		b.AmountTotalVat = *r.AmountTotalVat
	}
	if r.Note != nil {
		b.Note = *r.Note
	}
	for _, it := range r.Items {
		if cur := b.Item(it.ReferenceID); cur != nil {
			*cur = *it
			continue
		}
		b.Items = append(b.Items, it)
	}
	return nil
}
