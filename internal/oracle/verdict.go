package oracle

import (
	_ "embed"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/formscout/formscout/pkg/formatting"
)

//go:embed schema.json
var verdictSchemaJSON []byte

var verdictSchema = mustCompileSchema(verdictSchemaJSON)

func mustCompileSchema(data []byte) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("compile verdict schema: %v", err))
	}
	return schema
}

// ParseVerdict extracts the JSON payload from raw model output, validates it
// against the verdict schema, and decodes it. All adapters funnel their
// responses through here so a malformed answer fails the same way regardless
// of provider.
func ParseVerdict(content string) (Verdict, error) {
	payload := formatting.ExtractJSON(content)

	result := verdictSchema.ValidateJSON(payload)
	if !result.IsValid() {
		return Verdict{}, fmt.Errorf("%w: schema validation failed: %v", ErrInvalidResponse, result.Errors)
	}

	v, err := formatting.Parse[Verdict](string(payload))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	return v, nil
}
