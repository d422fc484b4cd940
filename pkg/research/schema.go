package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// SearchQuery is one decomposed query and why it is worth running.
type SearchQuery struct {
	Query     string `json:"query" validate:"notblank"`
	Rationale string `json:"rationale" validate:"required"`
}

type SearchQueries struct {
	Queries []SearchQuery `json:"queries" validate:"required,dive"`
}

type ResearchSummary struct {
	Summary          string   `json:"summary" validate:"notblank"`
	KeyInsights      []string `json:"key_insights" validate:"required"`
	SourcesConsulted []string `json:"sources_consulted" validate:"required"`
}

type FollowUpQuestion struct {
	Question  string `json:"question" validate:"notblank"`
	Rationale string `json:"rationale" validate:"required"`
}

type FollowUpQuestions struct {
	Questions []FollowUpQuestion `json:"questions" validate:"required,dive"`
}

// Schema couples a target type with the JSON schema text embedded in prompts.
type Schema[T any] struct {
	Name       string
	JSONSchema string
}

var (
	SearchQueriesSchema = Schema[SearchQueries]{
		Name: "SearchQueries",
		JSONSchema: `{
  "type": "object",
  "properties": {
    "queries": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "query": {"type": "string", "description": "Search query text"},
          "rationale": {"type": "string", "description": "Why this query is useful"}
        },
        "required": ["query", "rationale"]
      }
    }
  },
  "required": ["queries"]
}`,
	}

	ResearchSummarySchema = Schema[ResearchSummary]{
		Name: "ResearchSummary",
		JSONSchema: `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "key_insights": {"type": "array", "items": {"type": "string"}},
    "sources_consulted": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["summary", "key_insights", "sources_consulted"]
}`,
	}

	FollowUpQuestionsSchema = Schema[FollowUpQuestions]{
		Name: "FollowUpQuestions",
		JSONSchema: `{
  "type": "object",
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "question": {"type": "string"},
          "rationale": {"type": "string"}
        },
        "required": ["question", "rationale"]
      }
    }
  },
  "required": ["questions"]
}`,
	}
)

// FormatInstructions is appended to every prompt that expects structured output.
func (s Schema[T]) FormatInstructions() string {
	return "Return the JSON object directly without any formatting or additional text. " +
		"The JSON object should have the following structure as defined in the schema. " +
		"Make sure to answer in valid json and include all necessary properties:\n" + s.JSONSchema
}

// ErrNoJSONObject is returned when a completion is not a JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in completion")

// Parse decodes text into T and validates it. Missing fields, wrong types and
// empty required values are all errors; nothing is defaulted or coerced.
func (s Schema[T]) Parse(text string) (T, error) {
	var out T

	raw, err := extractJSON(text)
	if err != nil {
		return out, fmt.Errorf("failed to parse %s: %w", s.Name, err)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to parse %s: %w", s.Name, err)
	}
	if err := validate.Struct(out); err != nil {
		return out, fmt.Errorf("failed to parse %s: %w", s.Name, describeValidation(err))
	}
	return out, nil
}

var fencedBlock = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// extractJSON accepts a bare JSON object or one wrapped in a single markdown
// fence. Prose around the object is rejected.
func extractJSON(text string) (string, error) {
	t := strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(t); m != nil {
		t = m[1]
	}
	if !strings.HasPrefix(t, "{") || !strings.HasSuffix(t, "}") {
		return "", ErrNoJSONObject
	}
	return t, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		msgs = append(msgs, fmt.Sprintf("field %s failed %q validation", field, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
