// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxFrameSize is the maximum allowed size of one SSE frame (1MB).
// Sources events carry whole chunks of documents, so this is larger than a
// token-only stream would need.
const MaxFrameSize = 1024 * 1024

// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("sse frame too large")

// RawEvent is one undecoded SSE frame.
type RawEvent struct {
	Name string // "event:" field, empty when absent
	Data []byte // "data:" lines joined with "\n"
}

// =============================================================================
// SSE READER
// =============================================================================

// Reader parses Server-Sent Events from a stream.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a new SSE reader from an io.Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		reader: bufio.NewReader(r),
	}
}

// Next reads the next SSE frame from the stream.
// Returns io.EOF when the stream ends cleanly.
func (s *Reader) Next() (RawEvent, error) {
	var ev RawEvent
	var dataLines [][]byte
	size := 0
	hasFields := false

	for {
		line, err := s.readLine(MaxFrameSize - size)
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) {
				// Flush a final frame that was not terminated by a blank line
				if hasFields {
					ev.Data = bytes.Join(dataLines, []byte("\n"))
					return ev, nil
				}
				return RawEvent{}, io.EOF
			}
			return RawEvent{}, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if hasFields {
				ev.Data = bytes.Join(dataLines, []byte("\n"))
				return ev, nil
			}
			continue
		}

		size += len(line)
		if size > MaxFrameSize {
			return RawEvent{}, ErrFrameTooLarge
		}

		switch {
		case line[0] == ':':
			// Comment / keep-alive
		case bytes.HasPrefix(line, []byte("event:")):
			ev.Name = string(bytes.TrimSpace(line[len("event:"):]))
			hasFields = true
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			// A single leading space belongs to the field separator
			data = bytes.TrimPrefix(data, []byte(" "))
			dataLines = append(dataLines, append([]byte(nil), data...))
			hasFields = true
		}
		// Ignore other fields (id:, retry:)
	}
}

// readLine reads through the next newline. It fails with ErrFrameTooLarge
// as soon as the line outgrows limit content bytes, so a stream without
// newlines never buffers more than limit plus one bufio chunk.
func (s *Reader) readLine(limit int) ([]byte, error) {
	const eol = len("\r\n")
	var line []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(line)+len(chunk) > limit+eol {
			return nil, ErrFrameTooLarge
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}
