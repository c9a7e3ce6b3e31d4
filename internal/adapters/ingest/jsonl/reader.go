// Package jsonl streams decoded playback records from JSON Lines objects.
// Input may be plain or gzip compressed; the reader sniffs the magic bytes.
// A line that does not decode is surfaced as a coded rejection with its
// line number so the run report can account for every dropped record
package jsonl

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"

	"spinlog/internal/core/play"
	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
)

const (
	maxScanTokenSize = 16 * 1024 * 1024
	sampleRawMax     = 2048 // max bytes of raw JSON to log for the sample
)

// Line is one decoded record plus its position in the source object
type Line struct {
	Number int // 1-based
	Record play.Raw
}

// Reader streams Line items from one JSONL object
type Reader struct {
	r       io.ReadCloser
	gz      *gzip.Reader
	sc      *bufio.Scanner
	err     error
	line    int
	bytes   int64
	sampled bool // logs exactly one sample raw line per object
}

// NewReader wraps r, transparently decompressing gzip input
func NewReader(r io.ReadCloser) (*Reader, error) {
	br := bufio.NewReader(r)
	rd := &Reader{r: r}

	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, gerr := gzip.NewReader(br)
		if gerr != nil {
			if cerr := r.Close(); cerr != nil {
				return nil, cerr
			}
			return nil, perr.Wrap(gerr, perr.ErrorCodeSourceRead, "open gzip stream")
		}
		rd.gz = gz
		src = gz
	}

	sc := bufio.NewScanner(src)
	buf := make([]byte, 512*1024)
	sc.Buffer(buf, maxScanTokenSize)
	rd.sc = sc
	return rd, nil
}

// Next reads the next line; returns io.EOF when done. A malformed line
// yields a MalformedRecord error carrying the line number; the reader
// stays usable, so callers record the rejection and keep going
func (rd *Reader) Next() (Line, error) {
	if rd.err != nil {
		return Line{}, rd.err
	}
	for {
		if !rd.sc.Scan() {
			if err := rd.sc.Err(); err != nil {
				rd.err = perr.Wrap(err, perr.ErrorCodeSourceRead, "scan jsonl stream")
				return Line{}, rd.err
			}
			rd.err = io.EOF
			return Line{}, io.EOF
		}
		line := rd.sc.Bytes()
		rd.line++
		rd.bytes += int64(len(line) + 1) // include newline

		trimmed := trimSpaceBytes(line)
		if len(trimmed) == 0 {
			continue // blank lines carry no record
		}

		if !rd.sampled {
			rd.sampled = true
			logger.Named("jsonl").Debug().
				Int("line_bytes", len(line)).
				Str("sample_raw", truncateUTF8(trimmed, sampleRawMax)).
				Msg("jsonl: sample raw line")
		}

		var raw play.Raw
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return Line{Number: rd.line}, perr.Wrapf(err,
				perr.ErrorCodeMalformedRecord, "line %d does not decode", rd.line)
		}
		return Line{Number: rd.line, Record: raw}, nil
	}
}

// Close closes the decompressor and the underlying reader
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil {
			first = err
		}
	}
	if rd.r != nil {
		if err := rd.r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns lines seen and total uncompressed bytes read so far
func (rd *Reader) Stats() (lines int, bytes int64) {
	return rd.line, rd.bytes
}

func trimSpaceBytes(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r') {
		end--
	}
	return b[start:end]
}

// truncateUTF8 returns a string made from b, truncated to at most max bytes,
// backing up to a UTF-8 boundary if needed, and appending an ellipsis if truncated
func truncateUTF8(b []byte, max int) string {
	if max <= 0 || len(b) <= max {
		return string(b)
	}
	i := max
	// back up to the start of a rune (0b10xxxxxx indicates continuation byte)
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	if i <= 0 {
		i = max
	}
	return string(b[:i]) + "..."
}
