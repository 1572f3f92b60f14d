package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Функции, которые LLM может вызвать ответом в JSON
const (
	FuncListTasks    = "list_tasks"
	FuncSearchTasks  = "search_tasks"
	FuncCompleteTask = "complete_task"
	FuncDeleteTask   = "delete_task"
)

const functionCallSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["function"],
  "properties": {
    "function": {"enum": ["list_tasks", "search_tasks", "complete_task", "delete_task"]},
    "parameters": {"type": "object"}
  },
  "allOf": [
    {
      "if": {"properties": {"function": {"const": "list_tasks"}}},
      "then": {"properties": {"parameters": {"properties": {
        "status": {"enum": ["todo", "in_progress", "completed", "", null]},
        "priority": {"enum": ["urgent", "high", "medium", "low", "", null]}
      }}}}
    },
    {
      "if": {"properties": {"function": {"const": "search_tasks"}}},
      "then": {
        "required": ["parameters"],
        "properties": {"parameters": {
          "required": ["query"],
          "properties": {"query": {"type": "string", "minLength": 1}}
        }}
      }
    },
    {
      "if": {"properties": {"function": {"enum": ["complete_task", "delete_task"]}}},
      "then": {
        "required": ["parameters"],
        "properties": {"parameters": {
          "required": ["title"],
          "properties": {"title": {"type": "string", "minLength": 1}}
        }}
      }
    }
  ]
}`

var compiledSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("function_call.json", strings.NewReader(functionCallSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("function_call.json")
}()

// первый JSON-объект в тексте, допускается один уровень вложенности
var jsonObjectRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// FunctionCall: разобранный вызов функции из ответа LLM
type FunctionCall struct {
	Function   string `json:"function"`
	Parameters struct {
		Status   string `json:"status"`
		Priority string `json:"priority"`
		Query    string `json:"query"`
		Title    string `json:"title"`
	} `json:"parameters"`
}

// CallValidationError: JSON похож на вызов функции, но не проходит схему
type CallValidationError struct {
	Path    string
	Message string
}

func (e *CallValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid function call at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("invalid function call: %s", e.Message)
}

// ParseFunctionCall ищет в ответе модели JSON с ключом "function".
// ok=false: это обычный текст; err: вызов есть, но он некорректен.
func ParseFunctionCall(text string) (call *FunctionCall, ok bool, err error) {
	raw := jsonObjectRe.FindString(text)
	if raw == "" {
		return nil, false, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, nil
	}
	if _, has := doc["function"]; !has {
		return nil, false, nil
	}
	normalizeParams(doc)

	if err := compiledSchema.Validate(doc); err != nil {
		return nil, true, schemaError(err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, true, err
	}
	call = &FunctionCall{}
	if err := json.Unmarshal(normalized, call); err != nil {
		return nil, true, &CallValidationError{Message: err.Error()}
	}
	return call, true, nil
}

// модели любят писать "High" и "In Progress"
func normalizeParams(doc map[string]any) {
	params, ok := doc["parameters"].(map[string]any)
	if !ok {
		return
	}
	for _, key := range []string{"status", "priority"} {
		if s, ok := params[key].(string); ok {
			params[key] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
		}
	}
}

func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &CallValidationError{Message: err.Error()}
	}
	// самая глубокая причина обычно самая понятная
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &CallValidationError{Path: ve.InstanceLocation, Message: ve.Message}
}
