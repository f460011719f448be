package session

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/session-config.schema.json
var configSchemaJSON string

const configSchemaURL = "session-config.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(configSchemaURL, configSchemaJSON)
	})
	return compiledSchema, schemaErr
}

// validateConfig checks the raw config document against the embedded schema.
// Only the fields this package reads are constrained; unknown fields written
// by newer CLI versions are allowed.
func validateConfig(data []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile session config schema: %w", err)
	}

	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return err
	}
	return sch.Validate(document)
}
