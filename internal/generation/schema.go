package generation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Payload identifies the kind of structured oracle response being checked.
type Payload string

// Structured payload kinds.
const (
	PayloadStructure     Payload = "structure"
	PayloadQuiz          Payload = "quiz"
	PayloadReactionSteps Payload = "reaction_steps"
	PayloadStudyGuide    Payload = "study_guide"
)

// The schemas check presence and JSON types of required fields only. Graph
// invariants and question variants are enforced by the domain package.
var payloadSchemas = map[Payload]string{
	PayloadStructure: `{
		"type": "object",
		"required": ["name", "atoms", "bonds"],
		"properties": {
			"name": {"type": "string"},
			"description": {"type": "string"},
			"atoms": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "element"],
					"properties": {
						"id": {"type": "string"},
						"element": {"type": "string"},
						"x": {"type": "number"},
						"y": {"type": "number"}
					}
				}
			},
			"bonds": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["source", "target", "order"],
					"properties": {
						"source": {"type": "string"},
						"target": {"type": "string"},
						"order": {"type": "integer"},
						"stereo": {"type": "string"}
					}
				}
			},
			"resonanceStructures": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["bonds"],
					"properties": {
						"description": {"type": "string"},
						"bonds": {"type": "array"}
					}
				}
			},
			"symmetry": {
				"type": "object",
				"required": ["pointGroup"],
				"properties": {
					"pointGroup": {"type": "string"},
					"elements": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}`,
	PayloadQuiz: `{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"topic": {"type": "string"},
			"questions": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "type", "question", "correctAnswer", "explanation"],
					"properties": {
						"id": {"type": "integer"},
						"type": {"type": "string"},
						"question": {"type": "string"},
						"options": {"type": "array", "items": {"type": "string"}},
						"correctAnswer": {"type": "string"},
						"explanation": {"type": "string"}
					}
				}
			}
		}
	}`,
	PayloadReactionSteps: `{
		"type": "object",
		"required": ["name", "steps"],
		"properties": {
			"name": {"type": "string"},
			"steps": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["step", "keyConcept", "description"],
					"properties": {
						"step": {"type": "integer"},
						"keyConcept": {"type": "string"},
						"description": {"type": "string"}
					}
				}
			},
			"references": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	PayloadStudyGuide: `{
		"type": "object",
		"required": ["topic", "summary", "keyPoints", "commonMistakes", "resources"],
		"properties": {
			"topic": {"type": "string"},
			"summary": {"type": "string"},
			"keyPoints": {"type": "array", "items": {"type": "string"}},
			"commonMistakes": {"type": "array", "items": {"type": "string"}},
			"resources": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["title", "url", "source"],
					"properties": {
						"title": {"type": "string"},
						"url": {"type": "string"},
						"source": {"type": "string"}
					}
				}
			}
		}
	}`,
}

var (
	compileOnce     sync.Once
	compiledSchemas map[Payload]*gojsonschema.Schema
	compileErr      error
)

func compileSchemas() {
	compiledSchemas = make(map[Payload]*gojsonschema.Schema, len(payloadSchemas))
	for kind, src := range payloadSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			compileErr = fmt.Errorf("compiling %s schema: %w", kind, err)
			return
		}
		compiledSchemas[kind] = schema
	}
}

// ValidateShape checks raw JSON against the schema for kind. Failures wrap
// ErrInvalidResponse and list every violated constraint.
func ValidateShape(kind Payload, raw []byte) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}

	schema, ok := compiledSchemas[kind]
	if !ok {
		return fmt.Errorf("unknown payload kind %q", kind)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s payload is not valid JSON: %v", ErrInvalidResponse, kind, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("%w: %s payload: %s", ErrInvalidResponse, kind, strings.Join(problems, "; "))
}
