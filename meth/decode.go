package meth

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Version identifies the tool in the output header's program line.
const Version = "0.1.0"

const programName = "bio-methalign"

// Decode reads the aligner's SAM output from in, undoes the read conversion,
// and writes the restored stream to out.  Header lines are rewritten so the
// output refers to the original (unconverted) reference, commandLine is
// recorded in a program line, and alignment records get their original
// sequences back.  Records are processed in groups of consecutive lines
// sharing a read name, so mate and supplementary alignments of one template
// can fail QC together.
func Decode(in io.Reader, out io.Writer, commandLine string, opts Opts) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(nil, maxSAMLineSize)
	bw := bufio.NewWriter(out)

	sawRecord := false
	pgWritten := false
	var group []*Record
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "@") {
			if sawRecord {
				return fmt.Errorf("header line after alignment records: %q", line)
			}
			if err := rewriteHeader(bw, line, commandLine, &pgWritten); err != nil {
				return err
			}
			continue
		}
		sawRecord = true
		rec, err := ParseRecord(line)
		if err != nil {
			return err
		}
		if len(group) > 0 && group[0].Name != rec.Name {
			if err := flushGroup(bw, group, opts); err != nil {
				return err
			}
			group = group[:0]
		}
		group = append(group, rec)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !sawRecord {
		return errors.New("bad or empty aligner output")
	}
	if err := flushGroup(bw, group, opts); err != nil {
		return err
	}
	return bw.Flush()
}

const maxSAMLineSize = 16 * 1024 * 1024

// rewriteHeader copies one header line to w, dropping reverse-strand
// reference entries and stripping the strand tag from forward ones, and
// replacing any upstream program lines with a single line of our own.
func rewriteHeader(w *bufio.Writer, line, commandLine string, pgWritten *bool) error {
	switch {
	case strings.HasPrefix(line, "@SQ"):
		fields := strings.Split(line, "\t")
		for i, f := range fields {
			if !strings.HasPrefix(f, "SN:") {
				continue
			}
			name := f[len("SN:"):]
			if strings.HasPrefix(name, "r") {
				return nil
			}
			// Drop the forward-strand tag.
			fields[i] = "SN:" + name[1:]
			break
		}
		line = strings.Join(fields, "\t")
	case strings.HasPrefix(line, "@PG"):
		if *pgWritten {
			return nil
		}
		*pgWritten = true
		line = fmt.Sprintf("@PG\tID:%s\tPN:%s\tVN:%s\tCL:\"%s\"",
			programName, programName, Version, commandLine)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// flushGroup decodes every record of one read-name group and writes them out.
// If any record in the group fails QC, the failure is propagated to the whole
// group so downstream pair-aware tools see consistent mates.
func flushGroup(w *bufio.Writer, group []*Record, opts Opts) error {
	for _, rec := range group {
		if err := decodeRecord(rec, opts); err != nil {
			return err
		}
	}
	failed := false
	for _, rec := range group {
		if rec.IsQCFail() {
			failed = true
			break
		}
	}
	if failed {
		for _, rec := range group {
			rec.Flags |= sam.QCFail
			rec.Flags &^= sam.ProperPair
		}
	}
	for _, rec := range group {
		if _, err := fmt.Fprintln(w, rec.String()); err != nil {
			return err
		}
	}
	return nil
}

// decodeRecord restores one alignment record: the original sequence replaces
// the converted one (trimmed to match any hard clipping), reference names
// lose their strand tag, and poorly matching chimeric alignments are marked
// as QC failures.
func decodeRecord(rec *Record, opts Opts) error {
	orig, ok := rec.RemoveAux(originalSeqTag)
	if !ok {
		return fmt.Errorf("record %s is missing the original sequence tag; was the input generated by this tool?", rec.Name)
	}
	if rec.Seq != "*" && rec.Qual != "*" && len(rec.Seq) != len(rec.Qual) {
		return fmt.Errorf("record %s: sequence length %d != quality length %d", rec.Name, len(rec.Seq), len(rec.Qual))
	}
	if !rec.IsMapped() {
		if rec.Seq != "*" {
			rec.Seq = orig
		}
		if len(rec.Ref) > 1 && (rec.Ref[0] == 'f' || rec.Ref[0] == 'r') {
			rec.Ref = rec.Ref[1:]
		}
		return nil
	}

	direction := rec.Ref[:1]
	if direction != "f" && direction != "r" {
		return fmt.Errorf("record %s: unexpected reference name %q in alignment", rec.Name, rec.Ref)
	}
	rec.Ref = rec.Ref[1:]
	rec.AddAux(strandTag + direction)
	if opts.SetAsFailed == direction {
		rec.Flags |= sam.QCFail
	}

	ops, err := rec.CigarOps()
	if err != nil {
		return errors.Wrapf(err, "record %s: bad CIGAR %q", rec.Name, rec.Cigar)
	}
	if !opts.NoChimeraPenalty && float64(longestMatch(ops)) < opts.MinMatchFraction*float64(len(orig)) {
		rec.Flags |= sam.QCFail
		rec.Flags &^= sam.ProperPair
		if rec.MapQ > 1 {
			rec.MapQ = 1
		}
	}
	if len(rec.MateRef) > 1 && (rec.MateRef[0] == 'f' || rec.MateRef[0] == 'r') {
		rec.MateRef = rec.MateRef[1:]
	}

	// Hard clipping removed bases from the stored sequence; trim the
	// original to match before restoring it.
	l, r := leftClip(ops), rightClip(ops)
	if l+r > len(orig) {
		return fmt.Errorf("record %s: clipped %d+%d bases from a %d base read", rec.Name, l, r, len(orig))
	}
	if rec.IsReverse() {
		orig = reverseComplement(orig)
	}
	rec.Seq = orig[l : len(orig)-r]
	if rec.Qual != "*" && len(rec.Seq) != len(rec.Qual) {
		log.Error.Printf("record %s: restored sequence length %d != quality length %d",
			rec.Name, len(rec.Seq), len(rec.Qual))
	}
	return nil
}
