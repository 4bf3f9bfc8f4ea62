// Package chunker splits an oversized DiffChunk into size-bounded,
// independently-applicable sub-hunks. When a syntax tree is available it
// splits at AST node boundaries; otherwise it falls back to a line-count
// walk. Both strategies guarantee every input line is covered exactly once.
package chunker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/toyinlola/commitgroup/diffmodel"
	"github.com/toyinlola/commitgroup/syntaxtree"
)

// DefaultMaxChars is the byte-size budget used when a caller passes 0.
const DefaultMaxChars = 1500

// Chunk splits hunk into sub-hunks no larger than maxChars, using provider
// to parse the post-image when lang has a concrete grammar. Passing
// maxChars <= 0 uses DefaultMaxChars. A hunk already within budget, or with
// no lines at all, is handled without invoking the parser.
func Chunk(ctx context.Context, provider *syntaxtree.Provider, hunk *diffmodel.DiffChunk, lang diffmodel.LanguageTag, maxChars int) ([]*diffmodel.DiffChunk, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if len(hunk.Lines) == 0 {
		return nil, nil
	}
	if hunk.ByteSize() <= maxChars {
		return []*diffmodel.DiffChunk{cloneWhole(hunk)}, nil
	}
	if lang == diffmodel.LangText {
		return chunkText(hunk, maxChars), nil
	}
	return chunkAST(ctx, provider, hunk, lang, maxChars)
}

func cloneWhole(hunk *diffmodel.DiffChunk) *diffmodel.DiffChunk {
	lines := make([]diffmodel.DiffLine, len(hunk.Lines))
	copy(lines, hunk.Lines)
	return &diffmodel.DiffChunk{
		OldFilepath: hunk.OldFilepath,
		NewFilepath: hunk.NewFilepath,
		Start:       hunk.Start,
		IsNew:       hunk.IsNew,
		IsDeleted:   hunk.IsDeleted,
		Lines:       lines,
	}
}

// chunkText walks lines front-to-back, filling each sub-hunk until the next
// line would push it over maxChars.
func chunkText(hunk *diffmodel.DiffChunk, maxChars int) []*diffmodel.DiffChunk {
	var out []*diffmodel.DiffChunk
	var acc []diffmodel.DiffLine
	accSize := 0
	oldOffset := 0

	flush := func() {
		if len(acc) == 0 {
			return
		}
		lines := make([]diffmodel.DiffLine, len(acc))
		copy(lines, acc)
		out = append(out, &diffmodel.DiffChunk{
			OldFilepath: hunk.OldFilepath,
			NewFilepath: hunk.NewFilepath,
			Start:       hunk.Start + oldOffset,
			IsNew:       hunk.IsNew,
			IsDeleted:   hunk.IsDeleted,
			Lines:       lines,
		})
		for _, l := range lines {
			if l.Mode == diffmodel.EQ || l.Mode == diffmodel.Deletion {
				oldOffset++
			}
		}
		acc = acc[:0]
		accSize = 0
	}

	for _, l := range hunk.Lines {
		size := len(l.Content) + 2
		if accSize > 0 && accSize+size > maxChars {
			flush()
		}
		acc = append(acc, l)
		accSize += size
	}
	flush()
	return out
}

// lineOffset records where one post-image line landed in the reconstructed
// byte buffer handed to the parser.
type lineOffset struct {
	start, end uint32
	lineIdx    int
}

// buildPostImage reconstructs the post-image (EQ + Insertion lines) as a
// single byte buffer for parsing, alongside each line's byte range within
// it so AST node ranges can be mapped back to hunk.Lines indices.
func buildPostImage(hunk *diffmodel.DiffChunk) ([]byte, []lineOffset) {
	var buf bytes.Buffer
	offsets := make([]lineOffset, 0, len(hunk.Lines))
	for i, l := range hunk.Lines {
		if l.Mode != diffmodel.EQ && l.Mode != diffmodel.Insertion {
			continue
		}
		start := uint32(buf.Len())
		buf.WriteString(l.Content)
		end := uint32(buf.Len())
		offsets = append(offsets, lineOffset{start: start, end: end, lineIdx: i})
		buf.WriteByte('\n')
	}
	return buf.Bytes(), offsets
}

// overlapping returns the hunk.Lines indices among offsets whose byte range
// overlaps [start,end) and are not yet in assigned.
func overlapping(offsets []lineOffset, start, end uint32, assigned map[int]bool) []int {
	var out []int
	for _, o := range offsets {
		if assigned[o.lineIdx] {
			continue
		}
		if o.start == o.end {
			if o.start >= start && o.start < end {
				out = append(out, o.lineIdx)
			}
			continue
		}
		if o.start < end && o.end > start {
			out = append(out, o.lineIdx)
		}
	}
	return out
}

func sizeOf(hunk *diffmodel.DiffChunk, lineIdxs []int) int {
	n := 0
	for _, i := range lineIdxs {
		n += len(hunk.Lines[i].Content) + 2
	}
	return n
}

// buildSubHunk gap-fills between the lowest and highest assigned line
// index (inclusive) so that blank lines and deletion lines sitting between
// two AST nodes aren't lost, then marks that whole range assigned.
func buildSubHunk(hunk *diffmodel.DiffChunk, lineIdxs []int, assigned map[int]bool) *diffmodel.DiffChunk {
	min, max := lineIdxs[0], lineIdxs[0]
	for _, i := range lineIdxs {
		if i < min {
			min = i
		}
		if i > max {
			max = i
		}
	}

	oldOffset := 0
	for i := 0; i < min; i++ {
		if hunk.Lines[i].Mode == diffmodel.EQ || hunk.Lines[i].Mode == diffmodel.Deletion {
			oldOffset++
		}
	}

	lines := make([]diffmodel.DiffLine, max-min+1)
	copy(lines, hunk.Lines[min:max+1])
	for i := min; i <= max; i++ {
		assigned[i] = true
	}

	return &diffmodel.DiffChunk{
		OldFilepath: hunk.OldFilepath,
		NewFilepath: hunk.NewFilepath,
		Start:       hunk.Start + oldOffset,
		IsNew:       hunk.IsNew,
		IsDeleted:   hunk.IsDeleted,
		Lines:       lines,
	}
}

// chunkAST walks the post-image syntax tree's children left to right,
// accumulating lines into a running sub-hunk per §4.3's algorithm:
// oversized children are recursed into, children that would overflow the
// accumulator flush it first, everything else is appended.
func chunkAST(ctx context.Context, provider *syntaxtree.Provider, hunk *diffmodel.DiffChunk, lang diffmodel.LanguageTag, maxChars int) ([]*diffmodel.DiffChunk, error) {
	postImage, offsets := buildPostImage(hunk)
	tree, err := provider.Parse(ctx, postImage, lang)
	if err != nil {
		return nil, fmt.Errorf("chunker: parsing hunk for %s: %w", hunk.NewFilepath, err)
	}
	defer tree.Close()

	assigned := make(map[int]bool)
	return walkInto(tree.Root, hunk, offsets, assigned, maxChars), nil
}

// walkInto walks root's children left to right, accumulating lines into a
// running sub-hunk: oversized children are recursed into, children that
// would overflow the accumulator flush it first, everything else appends.
// It is used both for the top-level syntax tree root and, recursively, for
// any single child whose own size exceeds maxChars.
func walkInto(root syntaxtree.Node, hunk *diffmodel.DiffChunk, offsets []lineOffset, assigned map[int]bool, maxChars int) []*diffmodel.DiffChunk {
	var acc []int
	var out []*diffmodel.DiffChunk

	flush := func() {
		if len(acc) == 0 {
			return
		}
		out = append(out, buildSubHunk(hunk, acc, assigned))
		acc = nil
	}

	var walk func(n syntaxtree.Node)
	walk = func(n syntaxtree.Node) {
		for i := 0; i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			lines := overlapping(offsets, child.StartByte(), child.EndByte(), assigned)
			if len(lines) == 0 {
				continue
			}

			childSize := int(child.EndByte() - child.StartByte())
			if childSize > maxChars {
				if child.ChildCount() == 0 {
					flush()
					acc = lines
					flush()
					continue
				}
				// Do not mark lines assigned before recursing: the recursion's
				// own overlapping() calls need to still see them as
				// unassigned, or every grandchild would find nothing left to
				// claim and walkInto would return zero sub-hunks for the
				// whole subtree. buildSubHunk marks them once the recursion
				// actually flushes something.
				flush()
				out = append(out, walkInto(child, hunk, offsets, assigned, maxChars)...)
				continue
			}

			for _, li := range lines {
				assigned[li] = true
			}
			if sizeOf(hunk, acc)+childSize > maxChars {
				flush()
			}
			acc = append(acc, lines...)
		}
	}
	walk(root)
	flush()
	return out
}
