package parser

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/sokinpui/splice/internal/edit"
)

const devNull = "/dev/null"

// UnifiedDiffParser reads unified diffs, fenced as ```diff blocks or raw.
// Hunk headers are recomputed from the hunk content, so models may leave
// the line numbers out ("@@ @@").
type UnifiedDiffParser struct{}

func (UnifiedDiffParser) Name() string { return "unified-diff" }

func (UnifiedDiffParser) Prompt() string { return unifiedDiffPrompt }

func (UnifiedDiffParser) Parse(text string, env Env) ([]*edit.FileEdit, error) {
	chunks := []string{text}
	blocks, err := ExtractCodeBlocks([]byte(text))
	if err != nil {
		return nil, err
	}
	var fenced []string
	for _, b := range blocks {
		if b.Lang == "diff" || b.Lang == "patch" {
			fenced = append(fenced, b.Content)
		}
	}
	if len(fenced) > 0 {
		chunks = fenced
	}

	set := newEditSet(env)
	for _, chunk := range chunks {
		parseDiffChunk(chunk, set)
	}
	return set.list(), nil
}

type fileSection struct {
	origHeader string
	newHeader  string
	body       []string
}

func isFileHeader(lines []string, i int) bool {
	return strings.HasPrefix(lines[i], "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ")
}

func splitFileSections(text string) []fileSection {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var sections []fileSection

	for i := 0; i < len(lines); i++ {
		if !isFileHeader(lines, i) {
			continue
		}
		section := fileSection{
			origHeader: strings.TrimSpace(lines[i][4:]),
			newHeader:  strings.TrimSpace(lines[i+1][4:]),
		}
		i += 2
		for ; i < len(lines); i++ {
			if isFileHeader(lines, i) || strings.HasPrefix(lines[i], "diff ") {
				i--
				break
			}
			section.body = append(section.body, lines[i])
		}
		sections = append(sections, section)
	}
	return sections
}

// cleanName strips timestamps and the a/ b/ prefixes. /dev/null becomes "".
func cleanName(header string) string {
	name, _, _ := strings.Cut(header, "\t")
	name = strings.TrimSpace(name)
	if name == devNull {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		name = name[2:]
	}
	return name
}

func parseDiffChunk(text string, set *editSet) {
	env := set.env
	for _, section := range splitFileSections(text) {
		origPath := cleanName(section.origHeader)
		newPath := cleanName(section.newHeader)
		if origPath == "" && newPath == "" {
			continue
		}

		if newPath == "" {
			set.get(origPath).IsDeletion = true
			continue
		}

		path := origPath
		var source []string
		if origPath == "" {
			path = newPath
		} else {
			lines, ok := env.lines(env.resolve(origPath))
			if !ok {
				env.warn("Diff for %s refers to a file that cannot be read, skipping.", origPath)
				continue
			}
			source = lines
		}

		corrected, err := correctDiffHunks(source, section.body, orDevNull(origPath), newPath)
		if err != nil {
			env.warn("Could not locate a hunk of the diff for %s, skipping file: %v", path, err)
			continue
		}

		var replacements []edit.Replacement
		if corrected != "" {
			fileDiff, err := diff.ParseFileDiff([]byte(corrected))
			if err != nil {
				env.warn("Could not parse the diff for %s, skipping file: %v", path, err)
				continue
			}
			for _, h := range fileDiff.Hunks {
				replacements = append(replacements, hunkReplacements(h)...)
			}
		}

		e := set.get(path)
		if origPath == "" {
			e.IsCreation = true
			if len(replacements) == 0 {
				replacements = []edit.Replacement{{}}
			}
		} else if newPath != origPath {
			e.RenameFilePath = env.resolve(newPath)
		}
		e.Replacements = append(e.Replacements, replacements...)
	}
}

func orDevNull(name string) string {
	if name == "" {
		return devNull
	}
	return "a/" + name
}

// hunkReplacements splits a hunk into one replacement per run of removed
// and added lines.
func hunkReplacements(h *diff.Hunk) []edit.Replacement {
	idx := int(h.OrigStartLine) - 1
	if h.OrigLines == 0 {
		idx = int(h.OrigStartLine)
	}

	var out []edit.Replacement
	var current *edit.Replacement
	flush := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}
	open := func() {
		if current == nil {
			current = &edit.Replacement{StartingLine: idx, EndingLine: idx}
		}
	}

	body := strings.Split(strings.TrimSuffix(string(h.Body), "\n"), "\n")
	for _, line := range body {
		if line == "" {
			continue
		}
		switch line[0] {
		case ' ':
			flush()
			idx++
		case '-':
			open()
			idx++
			current.EndingLine = idx
		case '+':
			open()
			current.NewLines = append(current.NewLines, line[1:])
		}
	}
	flush()
	return out
}
