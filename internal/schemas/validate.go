// Package schemas validates configuration documents against JSON Schema.
package schemas

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every schema violation in a document.
type ValidationError struct {
	Document string
	Errors   []FieldError
}

// FieldError is one violation at a field path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	if ve.Document != "" {
		fmt.Fprintf(&sb, "%s: ", ve.Document)
	}
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// SchemaLoadError means the schema itself, or the document, could not be loaded.
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Schema is a compiled JSON Schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses schema source. name is used in error messages.
func Compile(name string, source []byte) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(source))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "invalid schema", Cause: err}
	}
	return &Schema{name: name, schema: s}, nil
}

// ValidateDocument validates a decoded Go value such as the output of a YAML
// or JSON unmarshal into map[string]any. document names the source in errors.
func (s *Schema) ValidateDocument(document string, doc any) error {
	return s.validate(document, gojsonschema.NewGoLoader(doc))
}

// ValidateJSON validates raw JSON bytes.
func (s *Schema) ValidateJSON(document string, data []byte) error {
	return s.validate(document, gojsonschema.NewBytesLoader(data))
}

func (s *Schema) validate(document string, loader gojsonschema.JSONLoader) error {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return &SchemaLoadError{Name: s.name, Message: "document could not be loaded", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Document: document,
		Errors:   make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	sort.SliceStable(validationErr.Errors, func(i, j int) bool {
		return validationErr.Errors[i].Field < validationErr.Errors[j].Field
	})
	return validationErr
}

// ValidateJSONString validates JSON content against schema content in one step.
func ValidateJSONString(schemaContent, jsonContent string) error {
	s, err := Compile("(string schema)", []byte(schemaContent))
	if err != nil {
		return err
	}
	return s.ValidateJSON("", []byte(jsonContent))
}
