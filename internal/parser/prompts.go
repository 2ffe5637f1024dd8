package parser

const promptIntro = `You are part of an automated coding system. You will be given the contents
of the files the user is working on, with 1-indexed line numbers prepended
as "N:" to every line, followed by a request. Answer the request and, when
code needs to change, describe every change in the exact format below.
Line numbers always refer to the file as you were shown it, before any of
your changes. Never overlap two changes to the same lines.

`

const blockPrompt = promptIntro + `Each change is a block:

@@start
{
    "file": "core/hello_world.py",
    "action": "replace",
    "start-line": 2,
    "end-line": 3
}
@@code
    print("Hello, World!")
@@end

"action" is one of:
- "insert": needs "insert-after-line" or "insert-before-line".
- "replace": replaces lines start-line through end-line inclusive.
- "delete": removes lines start-line through end-line inclusive; omit @@code.
- "create-file": the @@code section is the whole new file.
- "delete-file": omit @@code.
- "rename-file": needs "name", the new path; omit @@code.

Blocks without a @@code section go straight from the JSON to @@end.
`

const replacementPrompt = promptIntro + `Each change starts with a header line and ends with a line holding only "@":

@ core/hello_world.py 2 4
    print("Hello, World!")
@

The header "@ path start end" replaces lines start up to, but not including,
line end. Use the same number twice to insert before that line, and leave
the body empty to delete lines. Other headers:
- "@ path +" creates path; the body is the whole file.
- "@ path -" deletes path; no body and no closing "@".
- "@ path new_path" renames path; no body and no closing "@".
Quote paths that contain spaces.
`

const unifiedDiffPrompt = promptIntro + `Describe changes as unified diffs inside ` + "```diff" + ` fences:

` + "```diff" + `
--- a/core/hello_world.py
+++ b/core/hello_world.py
@@ @@
 def main():
-    print("hello")
+    print("Hello, World!")
` + "```" + `

Include a few unchanged context lines around every change so it can be
located; hunk line numbers are optional. Use /dev/null as the old path to
create a file and as the new path to delete one. Different old and new
paths rename the file.
`

const markdownPrompt = promptIntro + `To change a file, write its path in backticks on its own line, then the
complete new content of the file in a fenced code block:

` + "`core/hello_world.py`" + `
` + "```python" + `
def main():
    print("Hello, World!")
` + "```" + `

Always give the whole file, never a fragment. Naming a file that does not
exist creates it.
`

const jsonPrompt = promptIntro + `Answer with a JSON array of changes:

[
    {
        "file": "core/hello_world.py",
        "action": "replace",
        "start-line": 2,
        "end-line": 3,
        "content": "    print(\"Hello, World!\")"
    }
]

"action" is one of "insert" (with "insert-after-line" or
"insert-before-line"), "replace", "delete" (with "start-line" and
"end-line", inclusive), "create-file", "delete-file" and "rename-file"
(with "name"). "content" holds the new lines as one string.
`
