package asyncclient

import (
	"bytes"
	"fmt"
	"strconv"
)

type chunkedPhase int

const (
	phaseSize chunkedPhase = iota
	phaseData
	phaseDataCRLF
	phaseTrailer
	phaseDone
)

// ChunkedDecoder incrementally decodes an HTTP/1.1 chunked transfer-coding
// body. Feed may be called with arbitrarily small or large slices of the
// underlying byte stream, including one byte at a time, and the decoded
// Body is identical regardless of how the input was split across calls.
type ChunkedDecoder struct {
	phase     chunkedPhase
	remaining int
	pending   []byte
	body      bytes.Buffer
}

// NewChunkedDecoder returns a decoder ready to consume a chunk-encoded body.
func NewChunkedDecoder() *ChunkedDecoder {
	return &ChunkedDecoder{}
}

// Done reports whether the terminating zero-length chunk and its trailer
// section have been fully consumed.
func (d *ChunkedDecoder) Done() bool { return d.phase == phaseDone }

// Body returns the bytes decoded so far.
func (d *ChunkedDecoder) Body() []byte { return d.body.Bytes() }

// Feed consumes as much of data as the current phase allows, buffering any
// incomplete trailing line for the next call.
func (d *ChunkedDecoder) Feed(data []byte) error {
	d.pending = append(d.pending, data...)
	for {
		switch d.phase {
		case phaseDone:
			return nil

		case phaseSize:
			line, rest, ok := cutCRLFLine(d.pending)
			if !ok {
				return nil
			}
			d.pending = rest
			size, err := parseChunkSize(line)
			if err != nil {
				return err
			}
			d.remaining = size
			if size == 0 {
				d.phase = phaseTrailer
			} else {
				d.phase = phaseData
			}

		case phaseData:
			if len(d.pending) == 0 {
				return nil
			}
			n := d.remaining
			if n > len(d.pending) {
				n = len(d.pending)
			}
			d.body.Write(d.pending[:n])
			d.pending = d.pending[n:]
			d.remaining -= n
			if d.remaining == 0 {
				d.phase = phaseDataCRLF
			}

		case phaseDataCRLF:
			if len(d.pending) < 2 {
				return nil
			}
			d.pending = d.pending[2:]
			d.phase = phaseSize

		case phaseTrailer:
			// Consume trailer header lines, if any, up to the blank line
			// that terminates the body.
			line, rest, ok := cutCRLFLine(d.pending)
			if !ok {
				return nil
			}
			d.pending = rest
			if len(line) == 0 {
				d.phase = phaseDone
			}
		}
	}
}

func cutCRLFLine(buf []byte) (line, rest []byte, ok bool) {
	idx := bytes.Index(buf, []byte("\r\n"))
	if idx < 0 {
		return nil, buf, false
	}
	return buf[:idx], buf[idx+2:], true
}

func parseChunkSize(line []byte) (int, error) {
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		// Strip chunk extensions per RFC 7230 §4.1.1; this client has no
		// use for them.
		line = line[:i]
	}
	line = bytes.TrimSpace(line)
	n, err := strconv.ParseInt(string(line), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("asyncclient: malformed chunk size %q: %w", line, err)
	}
	return int(n), nil
}

// ContentLengthAccumulator accumulates exactly n bytes of body, tolerating
// arbitrary read boundaries the same way ChunkedDecoder does.
type ContentLengthAccumulator struct {
	remaining int
	body      bytes.Buffer
}

// NewContentLengthAccumulator returns an accumulator for a body of exactly
// n bytes.
func NewContentLengthAccumulator(n int) *ContentLengthAccumulator {
	return &ContentLengthAccumulator{remaining: n}
}

// Feed appends up to the remaining budget of data to the body.
func (a *ContentLengthAccumulator) Feed(data []byte) {
	n := len(data)
	if n > a.remaining {
		n = a.remaining
	}
	a.body.Write(data[:n])
	a.remaining -= n
}

// Done reports whether the declared content length has been reached.
func (a *ContentLengthAccumulator) Done() bool { return a.remaining <= 0 }

// Body returns the bytes accumulated so far.
func (a *ContentLengthAccumulator) Body() []byte { return a.body.Bytes() }
