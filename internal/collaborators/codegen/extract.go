// internal/collaborators/codegen/extract.go
package codegen

import (
	"errors"
	"regexp"
	"strings"
)

var ErrNoCodeBlock = errors.New("SYNTHESIS_EXTRACTION_FAILED")

// fencedBlock matches one fenced code block with an optional language tag.
var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\n(.*?)```")

// ExtractCodeBlock returns the body of the first fenced code block in a
// collaborator reply. This is a textual-contract step: the extracted text
// is not checked for syntactic validity here; the sandbox does that
// implicitly at execution time.
func ExtractCodeBlock(reply string) (string, error) {
	match := fencedBlock.FindStringSubmatch(reply)
	if match == nil {
		return "", ErrNoCodeBlock
	}

	source := strings.TrimRight(match[1], "\n")
	if strings.TrimSpace(source) == "" {
		return "", ErrNoCodeBlock
	}

	return source, nil
}
