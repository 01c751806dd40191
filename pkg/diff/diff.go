package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/aryann/difflib"

	"storyloom/pkg/utils"
)

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

type WordDelta struct {
	Op   Op
	Text string
}

// ScriptDiff is a word-level comparison of two script revisions, used when a
// regeneration overwrites an existing script so the change is visible in the
// log before the old text is gone.
type ScriptDiff struct {
	Old    string
	New    string
	Deltas []WordDelta
}

// Scripts diffs two script texts word by word.
func Scripts(oldText, newText string) ScriptDiff {
	if oldText == newText {
		return ScriptDiff{Old: oldText, New: newText, Deltas: []WordDelta{{Op: Equal, Text: oldText}}}
	}
	at := utils.TokenizeWords(oldText)
	bt := utils.TokenizeWords(newText)
	recs := difflib.Diff(at, bt)
	deltas := make([]WordDelta, 0, len(recs))
	for _, r := range recs {
		switch r.Delta {
		case difflib.Common:
			deltas = append(deltas, WordDelta{Op: Equal, Text: r.Payload})
		case difflib.LeftOnly:
			deltas = append(deltas, WordDelta{Op: Delete, Text: r.Payload})
		case difflib.RightOnly:
			deltas = append(deltas, WordDelta{Op: Insert, Text: r.Payload})
		}
	}
	return ScriptDiff{Old: oldText, New: newText, Deltas: coalesceSpaces(deltas)}
}

// Changed reports whether the two revisions differ at all.
func (d ScriptDiff) Changed() bool {
	for _, delta := range d.Deltas {
		if delta.Op != Equal {
			return true
		}
	}
	return false
}

// Stats counts inserted and deleted words, ignoring whitespace runs.
func (d ScriptDiff) Stats() (inserted, deleted int) {
	for _, delta := range d.Deltas {
		if strings.TrimSpace(delta.Text) == "" {
			continue
		}
		switch delta.Op {
		case Insert:
			inserted++
		case Delete:
			deleted++
		}
	}
	return inserted, deleted
}

// coalesceSpaces merges adjacent deltas of the same operation, letting
// whitespace runs attach to whichever side they sit between.
func coalesceSpaces(in []WordDelta) []WordDelta {
	out := make([]WordDelta, 0, len(in))
	flush := func(op Op, buf *strings.Builder) {
		if buf.Len() == 0 {
			return
		}
		out = append(out, WordDelta{Op: op, Text: buf.String()})
		buf.Reset()
	}
	var curOp Op = -1
	var buf strings.Builder
	for _, d := range in {
		if strings.TrimSpace(d.Text) == "" && d.Op == Equal {
			buf.WriteString(d.Text)
			continue
		}
		if curOp != d.Op && curOp != -1 {
			flush(curOp, &buf)
		}
		if curOp != d.Op {
			curOp = d.Op
		}
		buf.WriteString(d.Text)
	}
	flush(curOp, &buf)
	return out
}

const (
	ansiReset = "\x1b[0m"
	fgGreen   = "\x1b[32m"
	fgRed     = "\x1b[31m"
	uline     = "\x1b[4m"
	strike    = "\x1b[9m"
)

// Print renders the diff with ANSI markup: inserted words underlined green,
// deleted words struck-through red.
func (d ScriptDiff) Print(w io.Writer) {
	for _, delta := range d.Deltas {
		switch delta.Op {
		case Equal:
			fmt.Fprint(w, delta.Text)
		case Insert:
			fmt.Fprintf(w, "%s%s%s%s", fgGreen, uline, delta.Text, ansiReset)
		case Delete:
			fmt.Fprintf(w, "%s%s%s%s", fgRed, strike, delta.Text, ansiReset)
		}
	}
	fmt.Fprintln(w)
}
