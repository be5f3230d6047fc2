package models

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/save_request.json
var saveRequestSchemaJSON []byte

const saveRequestSchemaURL = "save_request.json"

var (
	saveRequestSchema     *jsonschema.Schema
	saveRequestSchemaErr  error
	saveRequestSchemaOnce sync.Once
)

func compiledSaveRequestSchema() (*jsonschema.Schema, error) {
	saveRequestSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(saveRequestSchemaURL, bytes.NewReader(saveRequestSchemaJSON)); err != nil {
			saveRequestSchemaErr = fmt.Errorf("schema: add resource: %w", err)
			return
		}
		saveRequestSchema, saveRequestSchemaErr = compiler.Compile(saveRequestSchemaURL)
	})
	return saveRequestSchema, saveRequestSchemaErr
}

// ValidateSaveRequest checks a raw JSON save body against the embedded schema.
func ValidateSaveRequest(body []byte) error {
	schema, err := compiledSaveRequestSchema()
	if err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
