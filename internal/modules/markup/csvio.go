package markup

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// csvTable reads a CSV stream addressed by header names.
type csvTable struct {
	r      *csv.Reader
	index  map[string]int
	header []string
	line   int
}

func openCSV(r io.Reader, required ...string) (*csvTable, error) {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	header := make([]string, len(h))
	index := make(map[string]int, len(h))
	for i, name := range h {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required header column: %s", col)
		}
	}
	return &csvTable{r: cr, index: index, header: header, line: 1}, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func (t *csvTable) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// next returns the next record or io.EOF. The slice is reused between calls.
func (t *csvTable) next() ([]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		return nil, err
	}
	t.line++
	return rec, nil
}

func (t *csvTable) get(rec []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// csvBuffer accumulates an output file in memory before it is uploaded.
type csvBuffer struct {
	buf  bytes.Buffer
	w    *csv.Writer
	rows int
}

func newCSVBuffer(header ...string) *csvBuffer {
	b := &csvBuffer{}
	b.w = csv.NewWriter(&b.buf)
	_ = b.w.Write(header)
	return b
}

func (b *csvBuffer) write(fields ...string) {
	_ = b.w.Write(fields)
	b.rows++
}

func (b *csvBuffer) reader() (io.Reader, error) {
	b.w.Flush()
	if err := b.w.Error(); err != nil {
		return nil, err
	}
	return bytes.NewReader(b.buf.Bytes()), nil
}
