package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sokinpui/splice/internal/edit"
)

// JSONParser reads a JSON array of changes using the same fields as the
// block format, with the new lines under "content".
type JSONParser struct{}

func (JSONParser) Name() string { return "json" }

func (JSONParser) Prompt() string { return jsonPrompt }

func (JSONParser) Parse(text string, env Env) ([]*edit.FileEdit, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end < start {
		return nil, nil
	}

	var changes []change
	if err := json.Unmarshal([]byte(text[start:end+1]), &changes); err != nil {
		return nil, fmt.Errorf("could not decode edits: %w", err)
	}

	set := newEditSet(env)
	for i, c := range changes {
		if err := set.add(c, c.Content); err != nil {
			env.warn("Skipping edit %d: %v", i+1, err)
		}
	}
	return set.list(), nil
}
