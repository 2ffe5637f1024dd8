package parser

import (
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/sokinpui/splice/internal/edit"
)

// ReplacementParser reads changes headed by "@ path start end" where start
// is the 1-indexed first replaced line and end the 1-indexed line after the
// last one, so "@ f 3 3" inserts before line 3. "@ f +" creates f, "@ f -"
// deletes it and "@ f g" renames it to g. Bodies run until a line holding
// a lone "@".
type ReplacementParser struct{}

func (ReplacementParser) Name() string { return "replacement" }

func (ReplacementParser) Prompt() string { return replacementPrompt }

func (ReplacementParser) Parse(text string, env Env) ([]*edit.FileEdit, error) {
	set := newEditSet(env)
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "@ ") {
			continue
		}
		header := lines[i]
		fields, err := shlex.Split(header[2:])
		if err != nil || len(fields) < 2 || len(fields) > 3 {
			env.warn("Could not read replacement header %q, skipping.", header)
			continue
		}

		path := fields[0]
		switch {
		case len(fields) == 2 && fields[1] == "+":
			body, next := readBody(lines, i+1)
			i = next
			e := set.get(path)
			e.IsCreation = true
			e.Replacements = append(e.Replacements, edit.Replacement{NewLines: body})

		case len(fields) == 2 && fields[1] == "-":
			set.get(path).IsDeletion = true

		case len(fields) == 2:
			set.get(path).RenameFilePath = env.resolve(fields[1])

		default:
			start, errStart := strconv.Atoi(fields[1])
			end, errEnd := strconv.Atoi(fields[2])
			body, next := readBody(lines, i+1)
			i = next
			if errStart != nil || errEnd != nil || start < 1 || end < start {
				env.warn("Invalid line range in %q, skipping.", header)
				continue
			}
			e := set.get(path)
			e.Replacements = append(e.Replacements, edit.Replacement{
				StartingLine: start - 1,
				EndingLine:   end - 1,
				NewLines:     body,
			})
		}
	}
	return set.list(), nil
}

// readBody collects lines from start up to the terminating "@" and returns
// them with the index of the terminator.
func readBody(lines []string, start int) ([]string, int) {
	var body []string
	i := start
	for ; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == "@" {
			break
		}
		body = append(body, lines[i])
	}
	return body, i
}
