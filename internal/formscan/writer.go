// internal/formscan/writer.go
package formscan

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// artifactJSON keeps non-ASCII text readable in the output file. The form's
// captions are Spanish; escaped codepoints would make the artifact useless
// to skim.
var artifactJSON = jsoniter.Config{
	EscapeHTML:    false,
	IndentionStep: 2,
	SortMapKeys:   false,
}.Froze()

// WriteArtifact serializes the field list to path as indented JSON.
func WriteArtifact(path string, fields []Field) error {
	data, err := artifactJSON.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("formscan: encoding artifact: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("formscan: writing artifact: %w", err)
	}
	return nil
}
