package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/splice/internal/edit"
)

type trackedMap map[string][]string

func (t trackedMap) Lines(rel string) ([]string, bool) {
	lines, ok := t[rel]
	return lines, ok
}

type recorder struct{ messages []string }

func (r *recorder) Send(message, _ string) { r.messages = append(r.messages, message) }

func byPath(edits []*edit.FileEdit) map[string]*edit.FileEdit {
	m := make(map[string]*edit.FileEdit, len(edits))
	for _, e := range edits {
		m[e.FilePath] = e
	}
	return m
}

func paths(edits []*edit.FileEdit) []string {
	var out []string
	for _, e := range edits {
		out = append(out, e.FilePath)
	}
	return out
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"block", "json", "markdown", "replacement", "unified-diff"}, Names())
	for _, name := range Names() {
		p, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
		assert.NotEmpty(t, p.Prompt())
	}
	_, err := Get("yaml")
	assert.Error(t, err)
}

func TestBlockParser(t *testing.T) {
	text := `Here is the change.
@@start
{"file": "main.go", "action": "replace", "start-line": 2, "end-line": 3}
@@code
B
@@end
@@start
{"file": "main.go", "action": "insert", "insert-after-line": 0}
@@code
top
@@end
@@start
{"file": "old.go", "action": "rename-file", "name": "new.go"}
@@end
@@start
{"file": "gone.go", "action": "delete-file"}
@@end
@@start
{"file": "fresh.go", "action": "create-file"}
@@code
package fresh
@@end
@@start
{"file": "bad.go", "action": "explode"}
@@end
Done.`

	r := &recorder{}
	edits, err := BlockParser{}.Parse(text, Env{Root: "/repo", Notifier: r})
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/main.go", "/repo/old.go", "/repo/gone.go", "/repo/fresh.go"}, paths(edits))

	got := byPath(edits)
	assert.Equal(t, []edit.Replacement{
		{StartingLine: 1, EndingLine: 3, NewLines: []string{"B"}},
		{StartingLine: 0, EndingLine: 0, NewLines: []string{"top"}},
	}, got["/repo/main.go"].Replacements)
	assert.Equal(t, "/repo/new.go", got["/repo/old.go"].RenameFilePath)
	assert.True(t, got["/repo/gone.go"].IsDeletion)
	assert.True(t, got["/repo/fresh.go"].IsCreation)
	assert.Equal(t, []string{"package fresh"}, got["/repo/fresh.go"].Replacements[0].NewLines)

	require.Len(t, r.messages, 1)
	assert.Contains(t, r.messages[0], "explode")
}

func TestBlockParserIncompleteBlock(t *testing.T) {
	text := "@@start\n{\"file\": \"a.go\", \"action\": \"insert\", \"insert-after-line\": 1}\n@@code\nhalf"
	r := &recorder{}
	edits, err := BlockParser{}.Parse(text, Env{Root: "/repo", Notifier: r})
	require.NoError(t, err)
	assert.Empty(t, edits)
	assert.Len(t, r.messages, 1)
}

func TestReplacementParser(t *testing.T) {
	text := `Sure.
@ main.go 2 4
B
@
@ main.go 1 1
top
@
@ "dir/with space.go" +
package x
@
@ gone.go -
@ old.go new.go
@ bad.go 0 2
x
@`

	r := &recorder{}
	edits, err := ReplacementParser{}.Parse(text, Env{Root: "/repo", Notifier: r})
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/main.go", "/repo/dir/with space.go", "/repo/gone.go", "/repo/old.go"}, paths(edits))

	got := byPath(edits)
	assert.Equal(t, []edit.Replacement{
		{StartingLine: 1, EndingLine: 3, NewLines: []string{"B"}},
		{StartingLine: 0, EndingLine: 0, NewLines: []string{"top"}},
	}, got["/repo/main.go"].Replacements)
	assert.True(t, got["/repo/dir/with space.go"].IsCreation)
	assert.True(t, got["/repo/gone.go"].IsDeletion)
	assert.Equal(t, "/repo/new.go", got["/repo/old.go"].RenameFilePath)
	assert.Len(t, r.messages, 1)
}

func TestUnifiedDiffParserRelocatesHunks(t *testing.T) {
	tracked := trackedMap{"main.go": {"package main", "", "func main() {", "\tprintln(\"hi\")", "}", ""}}
	text := "Change:\n\n```diff\n--- a/main.go\n+++ b/main.go\n@@ -10,3 +10,3 @@\n func main() {\n-\tprintln(\"hi\")\n+\tprintln(\"hello\")\n }\n```\n"

	edits, err := UnifiedDiffParser{}.Parse(text, Env{Root: "/repo", Tracked: tracked})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "/repo/main.go", edits[0].FilePath)
	assert.Equal(t, []edit.Replacement{
		{StartingLine: 3, EndingLine: 4, NewLines: []string{"\tprintln(\"hello\")"}},
	}, edits[0].Replacements)
}

func TestUnifiedDiffParserWithoutLineNumbers(t *testing.T) {
	tracked := trackedMap{"a.txt": {"one", "two", "three", "four", ""}}
	text := "--- a/a.txt\n+++ b/a.txt\n@@ @@\n two\n+two and a half\n three\n-four\n"

	edits, err := UnifiedDiffParser{}.Parse(text, Env{Root: "/repo", Tracked: tracked})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, []edit.Replacement{
		{StartingLine: 2, EndingLine: 2, NewLines: []string{"two and a half"}},
		{StartingLine: 3, EndingLine: 4, NewLines: nil},
	}, edits[0].Replacements)
}

func TestUnifiedDiffParserCreateDeleteRename(t *testing.T) {
	tracked := trackedMap{
		"gone.go": {"package gone", ""},
		"old.go":  {"package old", ""},
	}
	text := "--- /dev/null\n+++ b/new.go\n@@ -0,0 +1,2 @@\n+package x\n+\n" +
		"--- a/gone.go\n+++ /dev/null\n@@ -1 +0,0 @@\n-package gone\n" +
		"--- a/old.go\n+++ b/renamed.go\n"

	edits, err := UnifiedDiffParser{}.Parse(text, Env{Root: "/repo", Tracked: tracked})
	require.NoError(t, err)
	got := byPath(edits)
	require.Len(t, got, 3)

	created := got["/repo/new.go"]
	assert.True(t, created.IsCreation)
	assert.Equal(t, []edit.Replacement{{StartingLine: 0, EndingLine: 0, NewLines: []string{"package x", ""}}}, created.Replacements)

	assert.True(t, got["/repo/gone.go"].IsDeletion)
	assert.Equal(t, "/repo/renamed.go", got["/repo/old.go"].RenameFilePath)
}

func TestUnifiedDiffParserSkipsUnlocatableHunk(t *testing.T) {
	tracked := trackedMap{"a.txt": {"one", "two", ""}}
	text := "--- a/a.txt\n+++ b/a.txt\n@@ @@\n nowhere\n-to be found\n"

	r := &recorder{}
	edits, err := UnifiedDiffParser{}.Parse(text, Env{Root: "/repo", Tracked: tracked, Notifier: r})
	require.NoError(t, err)
	assert.Empty(t, edits)
	assert.Len(t, r.messages, 1)
}

func TestMarkdownParser(t *testing.T) {
	tracked := trackedMap{"main.go": {"old", ""}}
	text := "Update `main.go`:\n\n```go\nnew1\nnew2\n```\n\nAnd add:\n\n`pkg/new.go`\n```go\npackage pkg\n```\n\n```sh\ngo test ./...\n```\n"

	edits, err := MarkdownParser{}.Parse(text, Env{Root: "/nonexistent-root", Tracked: tracked})
	require.NoError(t, err)
	got := byPath(edits)
	require.Len(t, got, 2)

	assert.Equal(t, []edit.Replacement{
		{StartingLine: 0, EndingLine: 2, NewLines: []string{"new1", "new2", ""}},
	}, got["/nonexistent-root/main.go"].Replacements)

	created := got["/nonexistent-root/pkg/new.go"]
	assert.True(t, created.IsCreation)
	assert.Equal(t, []string{"package pkg"}, created.Replacements[0].NewLines)
}

func TestJSONParser(t *testing.T) {
	text := "```json\n[{\"file\": \"a.go\", \"action\": \"insert\", \"insert-before-line\": 3, \"content\": \"x\\ny\"}," +
		" {\"file\": \"a.go\", \"action\": \"delete\", \"start-line\": 5, \"end-line\": 6}," +
		" {\"file\": \"b.go\", \"action\": \"create-file\", \"content\": [\"package b\"]}]\n```"

	edits, err := JSONParser{}.Parse(text, Env{Root: "/repo"})
	require.NoError(t, err)
	got := byPath(edits)
	assert.Equal(t, []edit.Replacement{
		{StartingLine: 2, EndingLine: 2, NewLines: []string{"x", "y"}},
		{StartingLine: 4, EndingLine: 6, NewLines: nil},
	}, got["/repo/a.go"].Replacements)
	assert.Equal(t, []string{"package b"}, got["/repo/b.go"].Replacements[0].NewLines)

	_, err = JSONParser{}.Parse("[not json]", Env{Root: "/repo"})
	assert.Error(t, err)

	edits, err = JSONParser{}.Parse("no edits here", Env{Root: "/repo"})
	assert.NoError(t, err)
	assert.Empty(t, edits)
}

func TestMatchBlockToleratesWhitespace(t *testing.T) {
	source := []string{"func a() {", "", "    return  1", "}", "func b() {}"}
	assert.Equal(t, 1, matchBlock(source, []string{"func a() {", "return 1", "}"}))
	assert.Equal(t, 5, matchBlock(source, []string{"func b() {}"}))
	assert.Equal(t, -1, matchBlock(source, []string{"func c() {}"}))
	assert.Equal(t, -1, matchBlock(source, nil))
}

func TestExtractPathFromHint(t *testing.T) {
	assert.Equal(t, "cmd/main.go", extractPathFromHint("Update `cmd/main.go`:"))
	assert.Equal(t, "b.go", extractPathFromHint("Move `a.go` into `b.go`"))
	assert.Equal(t, "", extractPathFromHint("Run `go test ./...`"))
	assert.Equal(t, "", extractPathFromHint("no path"))
}
