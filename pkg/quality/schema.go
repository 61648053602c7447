package quality

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaRegistry compiles and caches the JSON schemas for every
// configured module, resolving `$ref`s across the whole component
// schema set so one module's schema can reference a shared definition
// (e.g. a provenance record type) declared in another module's file.
type SchemaRegistry struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
	required map[string][]string
}

// NewSchemaRegistry compiles every schema file named in schemaPaths
// (module id -> path) against a shared compiler so cross-module $ref
// resolution works.
func NewSchemaRegistry(schemaPaths map[string]string) (*SchemaRegistry, error) {
	compiler := jsonschema.NewCompiler()

	for moduleID, path := range schemaPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema for %s: %w", moduleID, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema for %s: %w", moduleID, err)
		}
		url := "module://" + moduleID + "/" + filepath.Base(path)
		if err := compiler.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource for %s: %w", moduleID, err)
		}
	}

	reg := &SchemaRegistry{
		compiled: make(map[string]*jsonschema.Schema, len(schemaPaths)),
		required: make(map[string][]string, len(schemaPaths)),
	}

	for moduleID, path := range schemaPaths {
		url := "module://" + moduleID + "/" + filepath.Base(path)
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", moduleID, err)
		}
		reg.compiled[moduleID] = sch

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema for %s: %w", moduleID, err)
		}
		var parsed struct {
			Required []string `json:"required"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parse required array for %s: %w", moduleID, err)
		}
		reg.required[moduleID] = parsed.Required
	}

	return reg, nil
}

// Required returns the module's schema-declared required field names.
func (r *SchemaRegistry) Required(moduleID string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields, ok := r.required[moduleID]
	return fields, ok
}

// Validate checks data against moduleID's compiled schema, returning
// the validation error messages (empty if valid).
func (r *SchemaRegistry) Validate(moduleID string, data any) []string {
	r.mu.RLock()
	sch, ok := r.compiled[moduleID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := sch.Validate(data); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return flattenValidationErrors(ve)
		}
		return []string{err.Error()}
	}
	return nil
}

func flattenValidationErrors(ve *jsonschema.ValidationError) []string {
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e.Error() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Error()))
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return msgs
}

// evaluateSchemaAdherence scores dimension 3. A schema that failed to
// load is reported as a warning, not a blocking failure: the dimension
// scores 1.0 so a config/deployment issue never masks the model's
// actual output quality.
func (c *Checker) evaluateSchemaAdherence(moduleID string, raw []byte, feedback []string) (float64, []string, []string) {
	if c.schemas == nil {
		return 1.0, nil, append(feedback, "schema_adherence: no schema registry configured, skipping")
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0.0, []string{err.Error()}, append(feedback, formatFeedback("schema_adherence", []string{err.Error()}))
	}

	if _, ok := c.schemas.Required(moduleID); !ok {
		return 1.0, nil, append(feedback, fmt.Sprintf("schema_adherence: no schema registered for module %s, skipping", moduleID))
	}

	errs := c.schemas.Validate(moduleID, data)
	if len(errs) == 0 {
		return 1.0, nil, feedback
	}
	return 0.0, errs, append(feedback, formatFeedback("schema_adherence", errs))
}
