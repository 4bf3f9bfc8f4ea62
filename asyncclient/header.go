package asyncclient

import (
	"bytes"
	"strconv"
	"strings"
)

// Headers is a case-insensitive HTTP header map; keys are stored lowercased.
type Headers map[string]string

// Get looks up a header value case-insensitively.
func (h Headers) Get(key string) (string, bool) {
	v, ok := h[strings.ToLower(key)]
	return v, ok
}

// ContentLength returns the parsed Content-Length header, if present and
// well-formed.
func (h Headers) ContentLength() (int, bool) {
	v, ok := h.Get("content-length")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsChunked reports whether Transfer-Encoding names chunked.
func (h Headers) IsChunked() bool {
	v, ok := h.Get("transfer-encoding")
	return ok && strings.Contains(strings.ToLower(v), "chunked")
}

// SplitHeaders locates the "\r\n\r\n" sentinel in buf. If present, it
// returns the status line, the parsed (case-insensitive) headers, and any
// spillover bytes read past the sentinel that already belong to the body.
// ok is false until the sentinel has appeared.
func SplitHeaders(buf []byte) (status string, headers Headers, spillover []byte, ok bool) {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx < 0 {
		return "", nil, nil, false
	}
	block := buf[:idx]
	spillover = buf[idx+4:]

	lines := bytes.Split(block, []byte("\r\n"))
	headers = make(Headers, len(lines))
	if len(lines) > 0 {
		status = string(lines[0])
		lines = lines[1:]
	}
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		k, v, found := bytes.Cut(line, []byte(":"))
		if !found {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(string(k)))] = strings.TrimSpace(string(v))
	}
	return status, headers, spillover, true
}

// ParseStatusCode extracts the numeric status code from a status line like
// "HTTP/1.1 200 OK".
func ParseStatusCode(status string) int {
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return n
}
