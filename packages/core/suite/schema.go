package suite

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON schema every decoded suite document must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "hostspec suite",
  "type": "object",
  "required": ["controls"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "vars": {"type": "object", "additionalProperties": {"type": "string"}},
    "controls": {"type": "array", "items": {"$ref": "#/definitions/control"}}
  },
  "definitions": {
    "control": {
      "type": "object",
      "additionalProperties": false,
      "required": ["checks"],
      "oneOf": [{"required": ["file"]}, {"required": ["command"]}],
      "properties": {
        "title": {"type": "string"},
        "file": {"type": "string", "minLength": 1},
        "command": {"type": "string", "minLength": 1},
        "tags": {"type": "array", "items": {"type": "string"}},
        "skip": {"type": "string"},
        "only_if": {"type": "string"},
        "checks": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/check"}}
      }
    },
    "check": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": false,
      "properties": {
        "not": {"type": "boolean"},
        "type": {"enum": ["directory", "file", "symlink"]},
        "exists": {"type": "boolean"},
        "owner": {"type": ["string", "integer"]},
        "group": {"type": ["string", "integer"]},
        "readable": {"type": "boolean"},
        "writable": {"type": "boolean"},
        "executable": {"type": "boolean"},
        "mode": {"type": ["string", "integer"]},
        "size": {"$ref": "#/definitions/comparison"},
        "exit_status": {"$ref": "#/definitions/comparison"},
        "content": {"$ref": "#/definitions/matcher"},
        "stdout": {"$ref": "#/definitions/matcher"},
        "stderr": {"$ref": "#/definitions/matcher"},
        "ini": {
          "type": "object",
          "additionalProperties": false,
          "required": ["key", "value"],
          "properties": {
            "section": {"type": "string"},
            "key": {"type": "string"},
            "value": {"type": "string"}
          }
        },
        "json": {
          "type": "object",
          "additionalProperties": false,
          "required": ["path", "value"],
          "properties": {
            "path": {"type": "string"},
            "value": {"type": "string"}
          }
        }
      }
    },
    "comparison": {"type": ["string", "integer"]},
    "matcher": {
      "oneOf": [
        {"type": "string"},
        {
          "type": "object",
          "additionalProperties": false,
          "minProperties": 1,
          "properties": {
            "match": {"type": "string"},
            "contains": {"type": "string"},
            "line": {"type": "string"},
            "not": {"type": "boolean"}
          }
        }
      ]
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// ValidationError lists every schema violation found in one document.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid suite: %s", e.Path, strings.Join(e.Problems, "; "))
}

// validateDocument checks a decoded YAML document against Schema.
func validateDocument(path string, doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%s: schema validation error: %w", path, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Path: path}
	for _, desc := range result.Errors() {
		verr.Problems = append(verr.Problems, desc.String())
	}
	return verr
}
