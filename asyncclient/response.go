package asyncclient

import (
	"fmt"
	"io"

	"github.com/toyinlola/commitgroup/internal/errkind"
)

// readResponse reads status line, headers, and body from r, handling all
// three framing modes from §4.4: Content-Length, chunked, and
// connection-close. onBodyStart, if non-nil, is invoked once headers are
// parsed and body reading is about to begin (skipped when Content-Length
// is 0, matching the spec's "DONE directly" transition). On failure it
// returns the State the request was in when the failure occurred, so the
// caller can fail the Future with an accurate last-known state.
func readResponse(r io.Reader, onBodyStart func()) (*Response, State, error) {
	var buf []byte
	var status string
	var headers Headers
	var spillover []byte
	chunk := make([]byte, 4096)

	for headers == nil {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if st, h, sp, ok := SplitHeaders(buf); ok {
				status, headers, spillover = st, h, sp
			}
		}
		if headers != nil {
			break
		}
		if err != nil {
			return nil, StateReadingHeaders, errkind.New(errkind.Protocol, "reading headers", err)
		}
	}

	code := ParseStatusCode(status)

	if cl, ok := headers.ContentLength(); ok {
		if cl == 0 {
			return &Response{StatusCode: code, Headers: headers, Body: nil}, StateDone, nil
		}
		if onBodyStart != nil {
			onBodyStart()
		}
		acc := NewContentLengthAccumulator(cl)
		acc.Feed(spillover)
		for !acc.Done() {
			n, err := r.Read(chunk)
			if n > 0 {
				acc.Feed(chunk[:n])
			}
			if err != nil {
				if acc.Done() {
					break
				}
				return nil, StateReadingBody, errkind.New(errkind.Protocol, "reading body", shortBodyErr(err))
			}
		}
		return &Response{StatusCode: code, Headers: headers, Body: acc.Body()}, StateDone, nil
	}

	if headers.IsChunked() {
		if onBodyStart != nil {
			onBodyStart()
		}
		dec := NewChunkedDecoder()
		if err := dec.Feed(spillover); err != nil {
			return nil, StateReadingBody, errkind.New(errkind.Protocol, "decoding chunked body", err)
		}
		for !dec.Done() {
			n, err := r.Read(chunk)
			if n > 0 {
				if ferr := dec.Feed(chunk[:n]); ferr != nil {
					return nil, StateReadingBody, errkind.New(errkind.Protocol, "decoding chunked body", ferr)
				}
			}
			if err != nil {
				if dec.Done() {
					break
				}
				return nil, StateReadingBody, errkind.New(errkind.Protocol, "decoding chunked body", shortBodyErr(err))
			}
		}
		return &Response{StatusCode: code, Headers: headers, Body: dec.Body()}, StateDone, nil
	}

	// Connection-close framing: read until the peer closes the connection.
	if onBodyStart != nil {
		onBodyStart()
	}
	body := append([]byte{}, spillover...)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			body = append(body, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, StateReadingBody, errkind.New(errkind.Protocol, "reading connection-close body", err)
		}
	}
	return &Response{StatusCode: code, Headers: headers, Body: body}, StateDone, nil
}

func shortBodyErr(err error) error {
	if err == io.EOF {
		return fmt.Errorf("body shorter than declared length: %w", err)
	}
	return err
}
