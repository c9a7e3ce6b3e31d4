package jsonl

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
	"testing"

	perr "spinlog/internal/platform/errors"
)

func readAll(t *testing.T, rd *Reader) (lines []Line, rejects []int) {
	t.Helper()
	for {
		ln, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return lines, rejects
		}
		if err != nil {
			if perr.CodeOf(err) != perr.ErrorCodeMalformedRecord {
				t.Fatalf("unexpected error class: %v", err)
			}
			rejects = append(rejects, ln.Number)
			continue
		}
		lines = append(lines, ln)
	}
}

func TestReader_PlainStream(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		`{"track_id":"T1","played_at":"2025-08-20T22:31:46.000Z","duration_ms":200040}`,
		``,
		`{"track_id":"T2","played_at":"2025-08-20T23:05:00.000Z","duration_ms":180000}`,
	}, "\n")

	rd, err := NewReader(io.NopCloser(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()

	lines, rejects := readAll(t, rd)
	if len(lines) != 2 || len(rejects) != 0 {
		t.Fatalf("got %d lines, %d rejects", len(lines), len(rejects))
	}
	if *lines[0].Record.TrackID != "T1" || lines[0].Number != 1 {
		t.Fatalf("first line wrong: %+v", lines[0])
	}
	if *lines[1].Record.TrackID != "T2" || lines[1].Number != 3 {
		t.Fatalf("blank lines must still advance the line counter: %+v", lines[1])
	}
}

func TestReader_MalformedLineSurfacedNotSkipped(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		`{"track_id":"T1","played_at":"2025-08-20T22:31:46Z","duration_ms":1}`,
		`{not json at all`,
		`{"track_id":"T2","played_at":"2025-08-20T22:31:47Z","duration_ms":1}`,
	}, "\n")

	rd, err := NewReader(io.NopCloser(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()

	lines, rejects := readAll(t, rd)
	if len(lines) != 2 {
		t.Fatalf("reader must keep going past a bad line, got %d records", len(lines))
	}
	if len(rejects) != 1 || rejects[0] != 2 {
		t.Fatalf("bad line must be reported with its number, got %v", rejects)
	}
}

func TestReader_GzipSniffed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(`{"track_id":"T1","played_at":"2025-08-20T22:31:46Z","duration_ms":1}` + "\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	rd, err := NewReader(io.NopCloser(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()

	lines, rejects := readAll(t, rd)
	if len(lines) != 1 || len(rejects) != 0 {
		t.Fatalf("gzip stream: %d lines, %d rejects", len(lines), len(rejects))
	}
	if *lines[0].Record.TrackID != "T1" {
		t.Fatalf("record mismatch: %+v", lines[0])
	}
}

func TestReader_HintNumbersTolerated(t *testing.T) {
	t.Parallel()

	// played_hour has arrived both quoted and bare from different sources
	in := `{"track_id":"T1","played_at":"2025-08-20T22:31:46Z","duration_ms":1,"played_date":"2025-08-20","played_hour":22}`
	rd, err := NewReader(io.NopCloser(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()

	lines, rejects := readAll(t, rd)
	if len(lines) != 1 || len(rejects) != 0 {
		t.Fatalf("got %d lines, %d rejects", len(lines), len(rejects))
	}
	if string(lines[0].Record.PlayedHour) != "22" {
		t.Fatalf("bare numeric hint not tolerated: %q", lines[0].Record.PlayedHour)
	}
}

func TestReader_Stats(t *testing.T) {
	t.Parallel()

	in := "{\"track_id\":\"T1\",\"played_at\":\"2025-08-20T22:31:46Z\",\"duration_ms\":1}\nnot-json\n"
	rd, err := NewReader(io.NopCloser(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()

	readAll(t, rd)
	lines, bytesRead := rd.Stats()
	if lines != 2 {
		t.Fatalf("expected 2 lines seen, got %d", lines)
	}
	if bytesRead == 0 {
		t.Fatal("expected non-zero bytes read")
	}
}
