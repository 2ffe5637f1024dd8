package parser

import (
	"encoding/json"
	"strings"

	"github.com/sokinpui/splice/internal/edit"
)

const (
	blockStart = "@@start"
	blockCode  = "@@code"
	blockEnd   = "@@end"
)

// BlockParser reads changes framed as
//
//	@@start
//	{"file": "path", "action": "replace", "start-line": 2, "end-line": 3}
//	@@code
//	new lines
//	@@end
//
// Actions without new content go straight from the JSON header to @@end.
type BlockParser struct{}

func (BlockParser) Name() string { return "block" }

func (BlockParser) Prompt() string { return blockPrompt }

func (BlockParser) Parse(text string, env Env) ([]*edit.FileEdit, error) {
	set := newEditSet(env)
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != blockStart {
			continue
		}

		var header []string
		i++
		for ; i < len(lines); i++ {
			marker := strings.TrimSpace(lines[i])
			if marker == blockCode || marker == blockEnd {
				break
			}
			header = append(header, lines[i])
		}
		if i >= len(lines) {
			env.warn("Incomplete edit block at end of response, skipping.")
			break
		}

		var code []string
		if strings.TrimSpace(lines[i]) == blockCode {
			i++
			for ; i < len(lines) && strings.TrimSpace(lines[i]) != blockEnd; i++ {
				code = append(code, lines[i])
			}
			if i >= len(lines) {
				env.warn("Incomplete edit block at end of response, skipping.")
				break
			}
		}

		var c change
		if err := json.Unmarshal([]byte(strings.Join(header, "\n")), &c); err != nil {
			env.warn("Could not read edit block header, skipping: %v", err)
			continue
		}
		if err := set.add(c, code); err != nil {
			env.warn("Skipping edit block: %v", err)
		}
	}
	return set.list(), nil
}
