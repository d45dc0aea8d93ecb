package source

import (
	"bytes"

	sitter "github.com/smacker/go-tree-sitter"
)

// LineStart returns the offset of the first byte of the line containing off.
func (d *Document) LineStart(off uint32) uint32 {
	i := bytes.LastIndexByte(d.src[:off], '\n')
	return uint32(i + 1)
}

// LineEnd returns the offset just past the newline ending the line that
// contains off, or the buffer length on the last line.
func (d *Document) LineEnd(off uint32) uint32 {
	i := bytes.IndexByte(d.src[off:], '\n')
	if i < 0 {
		return uint32(len(d.src))
	}
	return off + uint32(i) + 1
}

// Indent returns the leading whitespace of the line containing off.
func (d *Document) Indent(off uint32) string {
	start := d.LineStart(off)
	end := start
	for int(end) < len(d.src) && (d.src[end] == ' ' || d.src[end] == '\t') {
		end++
	}
	return string(d.src[start:end])
}

// IndentUnit guesses one level of indentation from the file: a tab when any
// line is tab-indented, otherwise the smallest non-zero run of leading
// spaces. Files without indented lines default to two spaces.
func (d *Document) IndentUnit() string {
	smallest := 0
	for _, line := range bytes.Split(d.src, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if line[0] == '\t' {
			return "\t"
		}
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		if n > 0 && (smallest == 0 || n < smallest) {
			smallest = n
		}
	}
	if smallest == 0 {
		return "  "
	}
	return string(bytes.Repeat([]byte(" "), smallest))
}

// Lines returns the whole-line span covering n: from the start of its first
// line to just past the newline of its last line.
func (d *Document) Lines(n *sitter.Node) (uint32, uint32) {
	return d.LineStart(n.StartByte()), d.LineEnd(n.EndByte())
}

// SpansLines reports whether n's text contains a newline.
func (d *Document) SpansLines(n *sitter.Node) bool {
	return bytes.IndexByte(d.src[n.StartByte():n.EndByte()], '\n') >= 0
}

func (d *Document) isBlank(start, end uint32) bool {
	return len(bytes.TrimSpace(d.src[start:end])) == 0
}

// prevLine returns the span of the line ending at start, if any.
func (d *Document) prevLine(start uint32) (uint32, uint32, bool) {
	if start == 0 {
		return 0, 0, false
	}
	return d.LineStart(start - 1), start, true
}

// nextLine returns the span of the line beginning at end, if any.
func (d *Document) nextLine(end uint32) (uint32, uint32, bool) {
	if int(end) >= len(d.src) {
		return 0, 0, false
	}
	return end, d.LineEnd(end), true
}

// BlankRule says which adjacent blank line, if any, goes with a removed block.
type BlankRule int

const (
	// KeepBlanks removes exactly the block's lines.
	KeepBlanks BlankRule = iota
	// StatementBlanks takes the following blank line, or failing that the
	// preceding one. It inverts inserting "stmt\n\n" before a statement or
	// "\nstmt\n" at the end of the file.
	StatementBlanks
	// MemberBlanks takes the preceding blank line when the block is followed
	// by another blank line or by a closing brace. It inverts appending
	// "\nmember\n" to a class body.
	MemberBlanks
)

// LineDeletion returns an Edit deleting the whole lines of n, plus one
// adjacent blank line according to rule.
func (d *Document) LineDeletion(n *sitter.Node, rule BlankRule) Edit {
	start, end := d.Lines(n)
	return d.blockDeletion(start, end, rule)
}

func (d *Document) blockDeletion(start, end uint32, rule BlankRule) Edit {
	switch rule {
	case StatementBlanks:
		if ns, ne, ok := d.nextLine(end); ok && d.isBlank(ns, ne) {
			end = ne
		} else if ps, pe, ok := d.prevLine(start); ok && d.isBlank(ps, pe) {
			start = ps
		}
	case MemberBlanks:
		ps, pe, ok := d.prevLine(start)
		if ok && d.isBlank(ps, pe) {
			ns, ne, hasNext := d.nextLine(end)
			if !hasNext || d.isBlank(ns, ne) || bytes.HasPrefix(bytes.TrimSpace(d.src[ns:ne]), []byte("}")) {
				start = ps
			}
		}
	}
	return Delete(start, end)
}
