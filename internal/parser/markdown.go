package parser

import (
	"strings"

	"github.com/sokinpui/splice/internal/edit"
)

// MarkdownParser reads fenced code blocks whose preceding paragraph names a
// file in backticks. Each block becomes the file's full new content; ```diff
// blocks are handed to the unified diff parser.
type MarkdownParser struct{}

func (MarkdownParser) Name() string { return "markdown" }

func (MarkdownParser) Prompt() string { return markdownPrompt }

func (MarkdownParser) Parse(text string, env Env) ([]*edit.FileEdit, error) {
	blocks, err := ExtractCodeBlocks([]byte(text))
	if err != nil {
		return nil, err
	}

	set := newEditSet(env)
	for _, block := range blocks {
		if block.Lang == "diff" || block.Lang == "patch" {
			parseDiffChunk(block.Content, set)
			continue
		}

		filePath := extractPathFromHint(block.Hint)
		if filePath == "" {
			continue
		}

		newLines := blockLines(block.Content)
		abs := env.resolve(filePath)
		e := set.get(filePath)

		current, exists := env.lines(abs)
		if !exists {
			e.IsCreation = true
			e.Replacements = []edit.Replacement{{NewLines: newLines}}
			continue
		}
		if n := len(current); n > 0 && current[n-1] == "" {
			newLines = append(newLines, "")
		}
		// A later block for the same file wins.
		e.Replacements = []edit.Replacement{{StartingLine: 0, EndingLine: len(current), NewLines: newLines}}
	}
	return set.list(), nil
}

func blockLines(content string) []string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return []string{}
	}
	return strings.Split(content, "\n")
}
