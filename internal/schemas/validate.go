// Package schemas validates stage artifacts against their JSON Schemas.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed filtered.schema.json
var filteredSchema string

//go:embed translated.schema.json
var translatedSchema string

// FieldError is a single schema violation at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates schema violations for one document.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateFiltered checks a filtered artifact document.
func ValidateFiltered(doc []byte) error {
	return validate(filteredSchema, doc)
}

// ValidateTranslated checks a translated artifact document.
func ValidateTranslated(doc []byte) error {
	return validate(translatedSchema, doc)
}

func validate(schema string, doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation could not run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}
