package mockgateway

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const schemaTransaction = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "amount": { "type": "number", "minimum": 0 },
    "currency": { "type": "string", "pattern": "^[A-Z]{3}$" },
    "returnUrl": { "type": "string" },
    "orderId": { "type": "string" },
    "invoiceId": { "type": "string" },
    "paymentReference": { "type": "string" },
    "card3ds": { "type": "boolean" },
    "resources": {
      "type": "object",
      "properties": {
        "typeId": { "type": "string" },
        "customerId": { "type": "string" },
        "basketId": { "type": "string" },
        "metadataId": { "type": "string" }
      }
    }
  }
}`

const schemaNewPayment = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["amount", "currency", "resources"],
  "properties": {
    "amount": { "type": "number", "exclusiveMinimum": 0 },
    "resources": {
      "type": "object",
      "required": ["typeId"],
      "properties": { "typeId": { "type": "string", "minLength": 1 } }
    }
  }
}`

const schemaCancel = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "amount": { "type": "number", "minimum": 0 },
    "reasonCode": { "enum": ["CANCEL", "RETURN", "CREDIT"] },
    "paymentReference": { "type": "string" }
  }
}`

const schemaPaypage = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["amount", "currency", "returnUrl"],
  "properties": {
    "amount": { "type": "number", "exclusiveMinimum": 0 },
    "currency": { "type": "string", "pattern": "^[A-Z]{3}$" },
    "returnUrl": { "type": "string", "minLength": 1 },
    "excludeTypes": { "type": "array", "items": { "type": "string" } }
  }
}`

var (
	transactionLoader = gojsonschema.NewStringLoader(schemaTransaction)
	newPaymentLoader  = gojsonschema.NewStringLoader(schemaNewPayment)
	cancelLoader      = gojsonschema.NewStringLoader(schemaCancel)
	paypageLoader     = gojsonschema.NewStringLoader(schemaPaypage)
)

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, e := range result.Errors() {
			sb.WriteString(e.String())
			sb.WriteString("; ")
		}
		return fmt.Errorf("request does not conform to schema: %s", sb.String())
	}
	return nil
}
