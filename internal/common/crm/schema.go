package crm

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// envelopeSchema describes the record-search response shape we depend on:
// a "data" array of objects plus an optional "info" paging block.
var envelopeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"data": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
			},
		},
		"info": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"page":         map[string]interface{}{"type": "integer"},
				"per_page":     map[string]interface{}{"type": "integer"},
				"count":        map[string]interface{}{"type": "integer"},
				"more_records": map[string]interface{}{"type": "boolean"},
			},
		},
	},
	"required": []interface{}{"data"},
}

func validateEnvelope(body []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("envelope is not a JSON object: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(envelopeSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("envelope validation failed: %v", errs)
	}

	return nil
}
