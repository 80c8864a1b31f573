package domain

import "encoding/json"

// Card is a tokenized credit or debit card.
type Card struct {
	typeBase

	Number     string `json:"number,omitempty"`
	ExpiryDate string `json:"expiryDate,omitempty"`
	CVC        string `json:"cvc,omitempty"`
	Holder     string `json:"cardHolder,omitempty"`
	Brand      string `json:"brand,omitempty"`
	ThreeDS    *bool  `json:"3ds,omitempty"`
}

func NewCard() *Card { return &Card{typeBase: newTypeBase(TypeCard)} }

type cardFields Card

func (c *Card) MarshalJSON() ([]byte, error) {
	return json.Marshal((*cardFields)(c))
}

// HandleResponse merges the response. Some gateway versions report the
// verification code as "cvv"; it is stored as CVC.
func (c *Card) HandleResponse(body []byte, _ Method) error {
	if err := decodeType(c.name, body, (*cardFields)(c)); err != nil {
		return err
	}
	var legacy struct {
		CVV *string `json:"cvv"`
	}
	if err := decodeType(c.name, body, &legacy); err != nil {
		return err
	}
	if legacy.CVV != nil {
		c.CVC = *legacy.CVV
	}
	return nil
}
