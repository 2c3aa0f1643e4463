// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker defines the controller/execution-context protocol.
package worker

import (
	"bufio"
	"bytes"
	"io"
)

// lineReader reads one NDJSON line at a time from a streaming response.
type lineReader struct {
	reader *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{reader: bufio.NewReader(r)}
}

// next returns the next line without its trailing newline. It returns the
// final unterminated line, if any, before surfacing io.EOF.
func (l *lineReader) next() ([]byte, error) {
	line, err := l.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return bytes.TrimSpace(line), nil
		}
		return nil, err
	}
	return bytes.TrimSpace(line), nil
}
