package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+\d+(?:,\d+)? @@`)

// getTargetBlock creates a search pattern from a diff hunk. It uses only
// lines that are guaranteed to be in the source file (context and removed)
// and ignores empty ones so matching survives whitespace-only drift. It also
// returns how many blank source lines lead the hunk.
func getTargetBlock(hunk []string) (block []string, leadingBlank int) {
	for _, line := range hunk {
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, " ") {
			continue
		}
		content := line[1:]
		if strings.TrimSpace(content) == "" {
			if len(block) == 0 {
				leadingBlank++
			}
			continue
		}
		block = append(block, content)
	}
	return block, leadingBlank
}

// normalizeLineForMatching trims a line and collapses internal whitespace.
func normalizeLineForMatching(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchBlock finds the 1-indexed line where block starts in source. Empty
// lines on both sides are skipped and whitespace is normalized; -1 means no
// match.
func matchBlock(source, block []string) int {
	if len(block) == 0 {
		return -1
	}

	normalizedBlock := make([]string, len(block))
	for i, line := range block {
		normalizedBlock[i] = normalizeLineForMatching(line)
	}

	var filteredSource []string
	var originalLineNumbers []int
	for i, line := range source {
		normalizedLine := normalizeLineForMatching(line)
		if normalizedLine != "" {
			filteredSource = append(filteredSource, normalizedLine)
			originalLineNumbers = append(originalLineNumbers, i+1)
		}
	}

	for i := 0; i <= len(filteredSource)-len(normalizedBlock); i++ {
		match := true
		for j := 0; j < len(normalizedBlock); j++ {
			if filteredSource[i+j] != normalizedBlock[j] {
				match = false
				break
			}
		}
		if match {
			return originalLineNumbers[i]
		}
	}
	return -1
}

func buildHunkHeader(oldStart, oldLines, newStart, newLines int) string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldLines, newStart, newLines)
}

// rawHunk is a hunk body with the start line its header claimed, if any.
type rawHunk struct {
	claimedStart int
	lines        []string
}

func splitHunks(body []string) []rawHunk {
	var hunks []rawHunk
	var current *rawHunk

	for _, line := range body {
		if strings.HasPrefix(line, "@@") {
			if current != nil && len(current.lines) > 0 {
				hunks = append(hunks, *current)
			}
			current = &rawHunk{claimedStart: -1}
			if m := hunkHeaderRegex.FindStringSubmatch(line); m != nil {
				current.claimedStart, _ = strconv.Atoi(m[1])
			}
			continue
		}
		if current == nil {
			current = &rawHunk{claimedStart: -1}
		}
		switch {
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, "-"), strings.HasPrefix(line, " "):
			current.lines = append(current.lines, line)
		case line == "":
			// Models drop the leading space of blank context lines.
			current.lines = append(current.lines, " ")
		}
	}
	if current != nil && len(current.lines) > 0 {
		hunks = append(hunks, *current)
	}
	trimmed := hunks[:0]
	for _, h := range hunks {
		if h.lines = trimTrailingBlankContext(h.lines); len(h.lines) > 0 {
			trimmed = append(trimmed, h)
		}
	}
	return trimmed
}

func trimTrailingBlankContext(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == " " {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// correctDiffHunks rewrites every hunk header so its start line and counts
// match sourceLines, locating hunks by content rather than trusting the
// numbers the model wrote.
func correctDiffHunks(sourceLines []string, body []string, origName, newName string) (string, error) {
	hunks := splitHunks(body)
	if len(hunks) == 0 {
		return "", nil
	}

	var correctedParts []string
	correctedParts = append(correctedParts, fmt.Sprintf("--- %s\n", origName))
	correctedParts = append(correctedParts, fmt.Sprintf("+++ %s\n", newName))

	lineDiffOffset := 0
	for _, hunk := range hunks {
		targetBlock, leadingBlank := getTargetBlock(hunk.lines)

		var oldStart int
		switch {
		case len(targetBlock) == 0 && len(sourceLines) == 0:
			oldStart = 0
		case len(targetBlock) == 0 && hunk.claimedStart >= 0:
			oldStart = hunk.claimedStart
		default:
			oldStart = matchBlock(sourceLines, targetBlock)
			if oldStart == -1 {
				return "", fmt.Errorf("could not find matching block for a hunk")
			}
			oldStart = max(oldStart-leadingBlank, 1)
		}

		addCount, removeCount := 0, 0
		for _, line := range hunk.lines {
			if strings.HasPrefix(line, "+") {
				addCount++
			} else if strings.HasPrefix(line, "-") {
				removeCount++
			}
		}
		contextCount := len(hunk.lines) - addCount - removeCount

		oldLines := contextCount + removeCount
		newLines := contextCount + addCount
		newStart := oldStart + lineDiffOffset
		if oldLines == 0 && newStart == 0 {
			newStart = 1
		}

		correctedParts = append(correctedParts, buildHunkHeader(oldStart, oldLines, newStart, newLines))
		for _, line := range hunk.lines {
			correctedParts = append(correctedParts, line+"\n")
		}

		lineDiffOffset += newLines - oldLines
	}

	return strings.Join(correctedParts, ""), nil
}
