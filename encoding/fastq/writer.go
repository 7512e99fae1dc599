package fastq

import (
	"bufio"
	"io"
)

// Writer writes reads in 4-line FASTQ form.  Output is buffered; the caller
// must Flush when done.  Errors are sticky: once a write fails, later writes
// are no-ops that keep returning the first error.
type Writer struct {
	bw  *bufio.Writer
	err error
}

// NewWriter constructs a new FASTQ writer that writes reads to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Write writes the read r.
func (w *Writer) Write(r *Read) error {
	return w.WriteWithComment(r, "")
}

// WriteWithComment writes the read r with comment appended to its ID line
// after a single space.  Aligners invoked in comment-passthrough mode copy
// the comment into the alignment record's auxiliary fields verbatim.
func (w *Writer) WriteWithComment(r *Read, comment string) error {
	w.writeString(r.ID)
	if comment != "" {
		w.writeByte(' ')
		w.writeString(comment)
	}
	w.writeByte('\n')
	w.writeLine(r.Seq)
	w.writeLine(r.Unk)
	w.writeLine(r.Qual)
	return w.err
}

// Flush flushes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

func (w *Writer) writeLine(line string) {
	w.writeString(line)
	w.writeByte('\n')
}

func (w *Writer) writeString(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.WriteString(s)
}

func (w *Writer) writeByte(b byte) {
	if w.err != nil {
		return
	}
	w.err = w.bw.WriteByte(b)
}
