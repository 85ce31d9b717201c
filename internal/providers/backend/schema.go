package backend

import (
	"errors"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// pageSchemaJSON is the listing contract the catalog depends on. Unknown
// fields are allowed; missing totals or a non-array results field are not.
const pageSchemaJSON = `{
  "type": "object",
  "required": ["results", "total_results", "total_pages"],
  "properties": {
    "page": {"type": "integer", "minimum": 0},
    "total_results": {"type": "integer", "minimum": 0},
    "total_pages": {"type": "integer", "minimum": 0},
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "integer"},
          "title": {"type": ["string", "null"]},
          "poster_path": {"type": ["string", "null"]},
          "release_date": {"type": ["string", "null"]},
          "vote_average": {"type": ["number", "null"]},
          "original_language": {"type": ["string", "null"]},
          "overview": {"type": ["string", "null"]},
          "popularity": {"type": ["number", "null"]}
        }
      }
    }
  }
}`

var pageSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(pageSchemaJSON))
})

// validatePage checks a listing body against the page contract.
func validatePage(body []byte) error {
	schema, err := pageSchema()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return errors.New(strings.Join(problems, "; "))
}
