package meth

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/meth/encoding/fastq"
)

// Auxiliary tags used to carry conversion metadata through the aligner.
const (
	// originalSeqTag carries the pre-conversion read sequence.
	originalSeqTag = "YS:Z:"
	// conversionTag names the substitution applied ("CT" or "GA").
	conversionTag = "YC:Z:"
	// strandTag records which converted strand an alignment hit ("f" or "r").
	strandTag = "YD:Z:"
)

const (
	shortReadLen           = 80
	shortReadWarnThreshold = 50
)

// readConversions maps mate index (0 for R1, 1 for R2) to the substitution
// applied to that mate.
var readConversions = [2]string{"CT", "GA"}

// ConvertStats counts reads seen by ConvertReads.
type ConvertStats struct {
	Reads      int
	ShortReads int // reads shorter than shortReadLen
}

// ConvertReads streams the given read sources as one merged, converted FASTQ
// stream suitable as direct aligner input.  r1List and r2List are
// comma-separated source lists matched pairwise; an "NA" entry in r2List
// marks its pair as single-ended or interleaved.  R1 sequences have C
// substituted by T, R2 sequences G by A, and each record's header carries
// the original sequence and the substitution name as auxiliary tags.
func ConvertReads(r1List, r2List string, out io.Writer) (ConvertStats, error) {
	r1s := strings.Split(r1List, ",")
	r2s := strings.Split(r2List, ",")
	if len(r1s) != len(r2s) {
		return ConvertStats{}, fmt.Errorf("got %d R1 sources but %d R2 sources", len(r1s), len(r2s))
	}
	w := fastq.NewWriter(out)
	var stats ConvertStats
	for i := range r1s {
		if err := convertPair(r1s[i], r2s[i], w, &stats); err != nil {
			return stats, err
		}
	}
	if err := w.Flush(); err != nil {
		return stats, err
	}
	if stats.ShortReads > shortReadWarnThreshold {
		log.Error.Printf("WARNING: %d reads with length < %d", stats.ShortReads, shortReadLen)
		log.Error.Printf("       : this tool is designed for long reads")
	}
	return stats, nil
}

func convertPair(src1, src2 string, w *fastq.Writer, stats *ConvertStats) (err error) {
	log.Printf("converting reads in %s,%s", src1, src2)
	in1, err := fastq.Open(src1)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in1.Close(); err == nil {
			err = cerr
		}
	}()
	br := bufio.NewReader(in1)
	peeked, interleaved, err := peekInterleaved(br)
	if err != nil {
		return err
	}
	r1 := io.MultiReader(bytes.NewReader(peeked), br)

	if interleaved {
		log.Error.Printf("detected interleaved fastq")
		return convertInterleaved(r1, w, stats)
	}
	if src2 == "NA" {
		log.Error.Printf("WARNING: converting reads in single-end mode")
		return convertSingle(r1, w, stats)
	}
	in2, err := fastq.Open(src2)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in2.Close(); err == nil {
			err = cerr
		}
	}()
	scan := fastq.NewPairScanner(r1, in2)
	var read1, read2 fastq.Read
	for scan.Scan(&read1, &read2) {
		if err := convertRead(&read1, 0, w, stats); err != nil {
			return err
		}
		if err := convertRead(&read2, 1, w, stats); err != nil {
			return err
		}
	}
	return scan.Err()
}

func convertInterleaved(r io.Reader, w *fastq.Writer, stats *ConvertStats) error {
	scan := fastq.NewScanner(r)
	var read fastq.Read
	for mate := 0; scan.Scan(&read); mate ^= 1 {
		if err := convertRead(&read, mate, w, stats); err != nil {
			return err
		}
	}
	return scan.Err()
}

func convertSingle(r io.Reader, w *fastq.Writer, stats *ConvertStats) error {
	scan := fastq.NewScanner(r)
	var read fastq.Read
	for scan.Scan(&read) {
		if err := convertRead(&read, 0, w, stats); err != nil {
			return err
		}
	}
	return scan.Err()
}

// convertRead rewrites one read in place and writes it out: the header is
// cut at the first space and loses its mate suffix, the sequence is
// uppercased and converted for the given mate, and the original sequence
// plus the conversion name ride along in the header comment (bwa mem -C
// turns the comment into SAM aux tags).
func convertRead(read *fastq.Read, mate int, w *fastq.Writer, stats *ConvertStats) error {
	name := baseName(read.ID)
	if !strings.HasPrefix(name, "@") {
		return fmt.Errorf("expecting FASTQ 4-tuples, but found a record %q that doesn't start with \"@\"", name)
	}
	seq := strings.ToUpper(read.Seq)
	conv := readConversions[mate]
	read.ID = name
	read.Seq = strings.Replace(seq, conv[:1], conv[1:], -1)
	read.Unk = "+"
	stats.Reads++
	if len(seq) < shortReadLen {
		stats.ShortReads++
	}
	return w.WriteWithComment(read, originalSeqTag+seq+"\t"+conversionTag+conv)
}

// baseName cuts a FASTQ header at the first space and strips a trailing
// mate suffix (_R1/_R2 or /1//2).
func baseName(id string) string {
	if i := strings.IndexByte(id, ' '); i >= 0 {
		id = id[:i]
	}
	switch {
	case strings.HasSuffix(id, "_R1") || strings.HasSuffix(id, "_R2"):
		id = id[:len(id)-3]
	case strings.HasSuffix(id, "/1") || strings.HasSuffix(id, "/2"):
		id = id[:len(id)-2]
	}
	return id
}

// peekInterleaved reads up to five lines from br and reports whether the
// source carries interleaved pairs: in a 4-line record layout the fifth line
// is the second record's header, so matching header base names mean R1 and
// R2 alternate within one stream.  The consumed bytes are returned so the
// caller can replay them.
func peekInterleaved(br *bufio.Reader) ([]byte, bool, error) {
	var buf bytes.Buffer
	var first, fifth string
	for i := 0; i < 5; i++ {
		line, err := br.ReadString('\n')
		buf.WriteString(line)
		trimmed := strings.TrimRight(line, "\r\n")
		switch i {
		case 0:
			first = trimmed
		case 4:
			fifth = trimmed
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
	}
	if first == "" || fifth == "" {
		return buf.Bytes(), false, nil
	}
	return buf.Bytes(), headerToken(first) == headerToken(fifth), nil
}

func headerToken(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}
