package edit

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	message string
	color   string
}

type recorder struct {
	messages []sent
}

func (r *recorder) Send(message, color string) {
	r.messages = append(r.messages, sent{message, color})
}

type scriptedPrompter struct {
	recorder
	answers []bool
	asked   int
}

func (p *scriptedPrompter) AskYesNo(_ context.Context, defaultYes bool) (bool, error) {
	p.asked++
	if len(p.answers) == 0 {
		return defaultYes, nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

type trackedMap map[string][]string

func (m trackedMap) Lines(rel string) ([]string, bool) {
	lines, ok := m[rel]
	return lines, ok
}

func lines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func TestReplacementOrdering(t *testing.T) {
	rs := []Replacement{
		{StartingLine: 0, EndingLine: 5},
		{StartingLine: 3, EndingLine: 8},
		{StartingLine: 1, EndingLine: 8},
		{StartingLine: 2, EndingLine: 2},
	}
	ordered := applicationOrder(rs)
	require.Len(t, ordered, 4)
	assert.Equal(t, Replacement{StartingLine: 3, EndingLine: 8}, *ordered[0])
	assert.Equal(t, Replacement{StartingLine: 1, EndingLine: 8}, *ordered[1])
	assert.Equal(t, Replacement{StartingLine: 0, EndingLine: 5}, *ordered[2])
	assert.Equal(t, Replacement{StartingLine: 2, EndingLine: 2}, *ordered[3])

	// discovery order is untouched
	assert.Equal(t, 0, rs[0].StartingLine)
	assert.Equal(t, 3, rs[1].StartingLine)
}

func TestResolveConflictsTruncatesOverlap(t *testing.T) {
	e := &FileEdit{FilePath: "/repo/a.go", Replacements: []Replacement{
		{StartingLine: 0, EndingLine: 5, NewLines: []string{"first"}},
		{StartingLine: 3, EndingLine: 8, NewLines: []string{"second"}},
	}}
	rec := &recorder{}
	e.ResolveConflicts(rec)

	assert.Equal(t, 0, e.Replacements[0].StartingLine)
	assert.Equal(t, 3, e.Replacements[0].EndingLine)
	assert.Equal(t, 3, e.Replacements[1].StartingLine)
	assert.Equal(t, 8, e.Replacements[1].EndingLine)
	require.Len(t, rec.messages, 1)
	assert.Contains(t, rec.messages[0].message, "Change overlap detected")
	assert.Contains(t, rec.messages[0].message, "/repo/a.go")
}

func TestResolveConflictsNestedRangeCollapses(t *testing.T) {
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 2, EndingLine: 4},
		{StartingLine: 0, EndingLine: 10},
	}}
	e.ResolveConflicts(&recorder{})

	assert.Equal(t, Replacement{StartingLine: 0, EndingLine: 0}, e.Replacements[0])
	assert.Equal(t, Replacement{StartingLine: 0, EndingLine: 10}, e.Replacements[1])
}

func TestResolveConflictsInsertionNoticeOnly(t *testing.T) {
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 4, EndingLine: 4, NewLines: []string{"x"}},
		{StartingLine: 4, EndingLine: 4, NewLines: []string{"y"}},
	}}
	rec := &recorder{}
	e.ResolveConflicts(rec)

	require.Len(t, rec.messages, 1)
	notice := rec.messages[0].message
	require.Contains(t, notice, "+ x")
	require.Contains(t, notice, "+ y")
	assert.Less(t, strings.Index(notice, "+ x"), strings.Index(notice, "+ y"), "notice lists lines in applied order")
	assert.Equal(t, 4, e.Replacements[0].StartingLine)
	assert.Equal(t, 4, e.Replacements[1].EndingLine)

	got, err := e.UpdatedLines(lines(6))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "x", "y", "e", "f"}, got)
}

func TestThreeInsertionsKeepDiscoveryOrder(t *testing.T) {
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 1, EndingLine: 1, NewLines: []string{"1"}},
		{StartingLine: 1, EndingLine: 1, NewLines: []string{"2"}},
		{StartingLine: 1, EndingLine: 1, NewLines: []string{"3"}},
	}}
	e.ResolveConflicts(&recorder{})

	got, err := e.UpdatedLines([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "1", "2", "3", "b"}, got)
}

func TestResolveConflictsDisjointAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 2000; iter++ {
		n := rng.Intn(7)
		e := &FileEdit{}
		for i := 0; i < n; i++ {
			start := rng.Intn(9)
			end := start + rng.Intn(11-start)
			e.Replacements = append(e.Replacements, Replacement{StartingLine: start, EndingLine: end})
		}
		e.ResolveConflicts(nil)

		for i, a := range e.Replacements {
			for j, b := range e.Replacements {
				if i != j {
					require.Falsef(t, a.Overlaps(b), "overlap after resolution: %v", e.Replacements)
				}
			}
		}

		before := append([]Replacement(nil), e.Replacements...)
		e.ResolveConflicts(nil)
		require.Equal(t, before, e.Replacements)

		_, err := e.UpdatedLines(lines(12))
		require.NoError(t, err)
	}
}

func TestUpdatedLinesRoundTrip(t *testing.T) {
	original := lines(6)
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 2, EndingLine: 4, NewLines: []string{"new"}},
	}}
	got, err := e.UpdatedLines(original)
	require.NoError(t, err)

	require.Len(t, got, 5)
	assert.Equal(t, original[:2], got[:2])
	assert.Equal(t, "new", got[2])
	assert.Equal(t, original[4:], got[3:])
	assert.Equal(t, lines(6), original, "input buffer must not be modified")
}

func TestUpdatedLinesInsertionKeepsLines(t *testing.T) {
	original := lines(4)
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 2, EndingLine: 2, NewLines: []string{"x", "y"}},
	}}
	got, err := e.UpdatedLines(original)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "x", "y", "c", "d"}, got)
}

func TestUpdatedLinesBackToFront(t *testing.T) {
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 0, EndingLine: 1, NewLines: []string{"A1", "A2"}},
		{StartingLine: 3, EndingLine: 5, NewLines: nil},
		{StartingLine: 1, EndingLine: 2, NewLines: []string{"B"}},
	}}
	got, err := e.UpdatedLines(lines(6))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "B", "c", "f"}, got)
}

func TestUpdatedLinesPadsTail(t *testing.T) {
	e := &FileEdit{Replacements: []Replacement{
		{StartingLine: 4, EndingLine: 5, NewLines: []string{"tail"}},
	}}
	got, err := e.UpdatedLines([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "", "tail"}, got)
}

func TestUpdatedLinesOverlapIsFatal(t *testing.T) {
	e := &FileEdit{FilePath: "/repo/a.go", Replacements: []Replacement{
		{StartingLine: 0, EndingLine: 5},
		{StartingLine: 3, EndingLine: 8},
	}}
	got, err := e.UpdatedLines(lines(10))
	require.ErrorIs(t, err, ErrLineOverlap)
	assert.Nil(t, got)
}

func TestIsValid(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "exists.go")
	other := filepath.Join(root, "other.go")
	require.NoError(t, os.WriteFile(existing, []byte("package a\n"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("package a\n"), 0644))
	tracked := trackedMap{"exists.go": {"package a"}}

	t.Run("creation of existing file is rejected", func(t *testing.T) {
		rec := &recorder{}
		e := &FileEdit{FilePath: existing, IsCreation: true}
		assert.False(t, e.IsValid(tracked, root, rec))
		require.Len(t, rec.messages, 1)
		assert.Contains(t, rec.messages[0].message, "exists.go already exists")
	})

	t.Run("missing file is rejected", func(t *testing.T) {
		e := &FileEdit{FilePath: filepath.Join(root, "missing.go")}
		assert.False(t, e.IsValid(tracked, root, &recorder{}))
	})

	t.Run("untracked file is rejected", func(t *testing.T) {
		rec := &recorder{}
		e := &FileEdit{FilePath: other}
		assert.False(t, e.IsValid(tracked, root, rec))
		assert.Contains(t, rec.messages[0].message, "not in context")
	})

	t.Run("creation of new file is accepted", func(t *testing.T) {
		e := &FileEdit{FilePath: filepath.Join(root, "new.go"), IsCreation: true}
		assert.True(t, e.IsValid(tracked, root, &recorder{}))
	})

	t.Run("rename onto existing file is downgraded", func(t *testing.T) {
		e := &FileEdit{
			FilePath:       existing,
			RenameFilePath: other,
			Replacements:   []Replacement{{StartingLine: 0, EndingLine: 1, NewLines: []string{"package b"}}},
		}
		assert.True(t, e.IsValid(tracked, root, &recorder{}))
		assert.False(t, e.HasRename())
		assert.Len(t, e.Replacements, 1)
	})

	t.Run("nil notifier", func(t *testing.T) {
		e := &FileEdit{FilePath: existing, IsCreation: true}
		assert.NotPanics(t, func() { assert.False(t, e.IsValid(tracked, root, nil)) })

		e = &FileEdit{FilePath: existing, RenameFilePath: other}
		assert.NotPanics(t, func() { assert.True(t, e.IsValid(tracked, root, nil)) })
		assert.False(t, e.HasRename())
	})
}

func TestFilterReplacements(t *testing.T) {
	root := "/repo"
	tracked := trackedMap{"a.go": lines(6)}
	ctx := context.Background()

	t.Run("all declined is not kept", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/a.go", Replacements: []Replacement{
			{StartingLine: 0, EndingLine: 1},
			{StartingLine: 2, EndingLine: 3},
		}}
		p := &scriptedPrompter{answers: []bool{false, false}}
		kept, err := e.FilterReplacements(ctx, tracked, root, p)
		require.NoError(t, err)
		assert.False(t, kept)
		assert.Empty(t, e.Replacements)
	})

	t.Run("defaults to yes", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/a.go", Replacements: []Replacement{
			{StartingLine: 0, EndingLine: 1},
			{StartingLine: 2, EndingLine: 3},
		}}
		p := &scriptedPrompter{}
		kept, err := e.FilterReplacements(ctx, tracked, root, p)
		require.NoError(t, err)
		assert.True(t, kept)
		assert.Len(t, e.Replacements, 2)
		assert.Equal(t, 2, p.asked)
	})

	t.Run("partial acceptance keeps natural order", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/a.go", Replacements: []Replacement{
			{StartingLine: 4, EndingLine: 5},
			{StartingLine: 2, EndingLine: 3},
			{StartingLine: 0, EndingLine: 1},
		}}
		p := &scriptedPrompter{answers: []bool{true, false, true}}
		kept, err := e.FilterReplacements(ctx, tracked, root, p)
		require.NoError(t, err)
		assert.True(t, kept)
		assert.Equal(t, []Replacement{{StartingLine: 4, EndingLine: 5}, {StartingLine: 0, EndingLine: 1}}, e.Replacements)
	})

	t.Run("declined creation abandons edit", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/new.go", IsCreation: true, Replacements: []Replacement{
			{StartingLine: 0, EndingLine: 0, NewLines: []string{"package a"}},
		}}
		p := &scriptedPrompter{answers: []bool{false}}
		kept, err := e.FilterReplacements(ctx, tracked, root, p)
		require.NoError(t, err)
		assert.False(t, kept)
		assert.Equal(t, 1, p.asked)
	})

	t.Run("declined rename keeps replacements", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/a.go", RenameFilePath: "/repo/b.go", Replacements: []Replacement{
			{StartingLine: 0, EndingLine: 1},
		}}
		p := &scriptedPrompter{answers: []bool{false, true}}
		kept, err := e.FilterReplacements(ctx, tracked, root, p)
		require.NoError(t, err)
		assert.True(t, kept)
		assert.False(t, e.HasRename())
		assert.Len(t, e.Replacements, 1)
	})

	t.Run("declined deletion with nothing else is not kept", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/a.go", IsDeletion: true}
		p := &scriptedPrompter{answers: []bool{false}}
		kept, err := e.FilterReplacements(ctx, tracked, root, p)
		require.NoError(t, err)
		assert.False(t, kept)
	})

	t.Run("accepted deletion is kept", func(t *testing.T) {
		e := &FileEdit{FilePath: "/repo/a.go", IsDeletion: true}
		kept, err := e.FilterReplacements(ctx, tracked, root, &scriptedPrompter{})
		require.NoError(t, err)
		assert.True(t, kept)
	})
}

func TestDisplayRender(t *testing.T) {
	d := Display{
		FilePath:     "/repo/a.go",
		FileLines:    lines(6),
		Added:        []string{"new"},
		Removed:      []string{"c", "d"},
		Action:       UpdateFile,
		StartingLine: 2,
		EndingLine:   4,
	}
	out := d.Render("/repo")
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "- c")
	assert.Contains(t, out, "+ new")
	assert.Contains(t, out, changeDelimiter)
}
