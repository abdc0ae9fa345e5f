// internal/sandbox/schema.go
package sandbox

import "github.com/xeipuuv/gojsonschema"

// resultSchema is the stdout contract every sandboxed execution must
// satisfy. Anything else coming back over the pipe is a contract
// violation regardless of the process exit code.
const resultSchema = `{
	"type": "object",
	"required": ["insights", "data"],
	"properties": {
		"error":    {"type": "string"},
		"insights": {"type": "array", "items": {"type": "string"}},
		"chart":    {"type": "string"},
		"data":     {"type": "object"}
	},
	"additionalProperties": false
}`

var resultSchemaLoader = gojsonschema.NewStringLoader(resultSchema)

// validateResult checks raw stdout against the result contract and
// returns a human-readable description of the first violations found.
func validateResult(raw []byte) (bool, string) {
	result, err := gojsonschema.Validate(resultSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return false, "stdout is not valid JSON: " + err.Error()
	}
	if result.Valid() {
		return true, ""
	}

	desc := ""
	for i, violation := range result.Errors() {
		if i > 0 {
			desc += "; "
		}
		desc += violation.String()
		if i == 2 {
			break
		}
	}
	return false, desc
}
