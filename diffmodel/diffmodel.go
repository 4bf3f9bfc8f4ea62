// Package diffmodel defines the shared data types that flow through the
// commitgroup pipeline: diff lines, hunks, language tags, embedding vectors,
// clusters, and commit groups. It has zero dependencies on any other
// commitgroup package so that every stage of the pipeline can depend on it
// without creating import cycles.
package diffmodel

// LineMode identifies the role a single diff line plays within a hunk.
type LineMode int

const (
	// EQ is an unchanged context line, present in both pre- and post-image.
	EQ LineMode = iota
	// Insertion is a line added in the post-image only.
	Insertion
	// Deletion is a line removed from the pre-image only.
	Deletion
	// NoNewline represents a "\ No newline at end of file" marker. It
	// contributes to neither side's line count.
	NoNewline
)

// String returns a human-readable name for the line mode.
func (m LineMode) String() string {
	switch m {
	case EQ:
		return "eq"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	case NoNewline:
		return "no-newline"
	default:
		return "unknown"
	}
}

// DiffLine is a single line inside a hunk, stripped of its leading mode
// prefix. DiffLines are produced once by the DiffReader and are never
// mutated afterward.
type DiffLine struct {
	Mode    LineMode
	Content string
}

// DiffChunk represents a single hunk of a unified diff, or a sub-hunk
// produced by the Chunker from a parent hunk. Sub-hunks share no storage
// with their parent.
type DiffChunk struct {
	OldFilepath string
	NewFilepath string

	// Start is the 1-based line number in the pre-image, taken from the
	// hunk header's minus-side start (or, for a sub-hunk, computed by the
	// Chunker relative to the parent's Start).
	Start int

	// IsNew reports whether the pre-image is /dev/null (a new file).
	IsNew bool
	// IsDeleted reports whether the post-image is /dev/null (a deleted file).
	IsDeleted bool

	Lines []DiffLine
}

// IsRename reports whether this chunk represents a file rename: the old and
// new paths differ and the file was neither newly created nor deleted.
func (c *DiffChunk) IsRename() bool {
	return c.OldFilepath != c.NewFilepath && !c.IsNew && !c.IsDeleted
}

// OldCount returns the number of lines visible to the pre-image: EQ and
// Deletion lines contribute, Insertion and NoNewline do not.
func (c *DiffChunk) OldCount() int {
	n := 0
	for _, l := range c.Lines {
		if l.Mode == EQ || l.Mode == Deletion {
			n++
		}
	}
	return n
}

// NewCount returns the number of lines visible to the post-image: EQ and
// Insertion lines contribute, Deletion and NoNewline do not.
func (c *DiffChunk) NewCount() int {
	n := 0
	for _, l := range c.Lines {
		if l.Mode == EQ || l.Mode == Insertion {
			n++
		}
	}
	return n
}

// ByteSize returns the total byte size of the chunk's line content
// (including mode prefixes and newline separators), the measure the
// Chunker's maxChars budget is checked against.
func (c *DiffChunk) ByteSize() int {
	n := 0
	for _, l := range c.Lines {
		n += len(l.Content) + 2 // prefix byte + trailing newline
	}
	return n
}

// PreImageLines reconstructs the pre-image slice by concatenating EQ and
// Deletion line contents in order.
func (c *DiffChunk) PreImageLines() []string {
	var out []string
	for _, l := range c.Lines {
		if l.Mode == EQ || l.Mode == Deletion {
			out = append(out, l.Content)
		}
	}
	return out
}

// PostImageLines reconstructs the post-image slice by concatenating EQ and
// Insertion line contents in order.
func (c *DiffChunk) PostImageLines() []string {
	var out []string
	for _, l := range c.Lines {
		if l.Mode == EQ || l.Mode == Insertion {
			out = append(out, l.Content)
		}
	}
	return out
}

// LanguageTag identifies the syntax family of a changed file, used to pick a
// Chunker strategy and a SyntaxTreeProvider grammar.
type LanguageTag string

const (
	LangPython     LanguageTag = "python"
	LangCPP        LanguageTag = "cpp"
	LangJava       LanguageTag = "java"
	LangJavaScript LanguageTag = "javascript"
	LangTypeScript LanguageTag = "typescript"
	LangGo         LanguageTag = "go"
	// LangText forces the line-based chunker fallback.
	LangText LanguageTag = "text"
)

// EmbeddingVector is a finite ordered sequence of 32-bit floats returned by
// the embedding model. All vectors from one configured model share a single
// dimension and are treated as unit-normalized.
type EmbeddingVector []float32

// Cluster is a non-empty ordered sequence of chunk indices. A Clustering is
// a slice of Clusters that partitions [0, N).
type Cluster struct {
	Indices []int
}

// CommitGroup joins a cluster with the patch files written for it and the
// generated commit message. This is the element type of the commits.json
// manifest array.
type CommitGroup struct {
	PatchPaths    []string `json:"patch_paths"`
	CommitMessage string   `json:"commit_message"`
}
