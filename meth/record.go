package meth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// Record is one tab-delimited alignment line from the aligner's SAM output.
// The eleven fixed fields are kept in typed form; auxiliary TAG:TYPE:VALUE
// fields are kept verbatim.  A Record is parsed from a line, mutated in place
// while decoding, and serialized back with String.
type Record struct {
	Name    string
	Flags   sam.Flags
	Ref     string
	Pos     int
	MapQ    int
	Cigar   string
	MateRef string
	MatePos int
	TempLen int
	Seq     string
	Qual    string
	Aux     []string
}

const numFixedFields = 11

// ParseRecord parses one SAM alignment line.
func ParseRecord(line string) (*Record, error) {
	f := strings.Split(line, "\t")
	if len(f) < numFixedFields {
		return nil, fmt.Errorf("alignment line has %d fields, want at least %d: %q", len(f), numFixedFields, line)
	}
	flags, err := strconv.ParseUint(f[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAG: %v", err)
	}
	pos, err := strconv.Atoi(f[3])
	if err != nil {
		return nil, fmt.Errorf("failed to parse POS: %v", err)
	}
	mapq, err := strconv.Atoi(f[4])
	if err != nil {
		return nil, fmt.Errorf("failed to parse MAPQ: %v", err)
	}
	matePos, err := strconv.Atoi(f[7])
	if err != nil {
		return nil, fmt.Errorf("failed to parse PNEXT: %v", err)
	}
	// Some tools emit TLEN as a float.
	tlen, err := strconv.ParseFloat(f[8], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TLEN: %v", err)
	}
	return &Record{
		Name:    f[0],
		Flags:   sam.Flags(flags),
		Ref:     f[2],
		Pos:     pos,
		MapQ:    mapq,
		Cigar:   f[5],
		MateRef: f[6],
		MatePos: matePos,
		TempLen: int(tlen),
		Seq:     f[9],
		Qual:    f[10],
		Aux:     f[numFixedFields:],
	}, nil
}

// String serializes the record back to its tab-delimited SAM form.
func (r *Record) String() string {
	f := make([]string, 0, numFixedFields+len(r.Aux))
	f = append(f,
		r.Name,
		strconv.Itoa(int(r.Flags)),
		r.Ref,
		strconv.Itoa(r.Pos),
		strconv.Itoa(r.MapQ),
		r.Cigar,
		r.MateRef,
		strconv.Itoa(r.MatePos),
		strconv.Itoa(r.TempLen),
		r.Seq,
		r.Qual)
	f = append(f, r.Aux...)
	return strings.Join(f, "\t")
}

// IsMapped reports whether the read itself is mapped.
func (r *Record) IsMapped() bool { return r.Flags&sam.Unmapped == 0 }

// IsReverse reports whether the read is mapped to the reverse strand.
func (r *Record) IsReverse() bool { return r.Flags&sam.Reverse != 0 }

// IsQCFail reports whether the read is flagged as a QC failure.
func (r *Record) IsQCFail() bool { return r.Flags&sam.QCFail != 0 }

// AuxValue returns the value of the first auxiliary field with the given
// TAG:TYPE: prefix, and whether one was found.
func (r *Record) AuxValue(prefix string) (string, bool) {
	for _, f := range r.Aux {
		if strings.HasPrefix(f, prefix) {
			return f[len(prefix):], true
		}
	}
	return "", false
}

// RemoveAux removes the first auxiliary field with the given TAG:TYPE:
// prefix, returning its value and whether one was found.
func (r *Record) RemoveAux(prefix string) (string, bool) {
	for i, f := range r.Aux {
		if strings.HasPrefix(f, prefix) {
			r.Aux = append(r.Aux[:i], r.Aux[i+1:]...)
			return f[len(prefix):], true
		}
	}
	return "", false
}

// AddAux appends an auxiliary field, given verbatim as TAG:TYPE:VALUE.
func (r *Record) AddAux(field string) {
	r.Aux = append(r.Aux, field)
}

// CigarOps parses the record's CIGAR string.  An unavailable CIGAR ("*")
// yields an empty slice.
func (r *Record) CigarOps() (sam.Cigar, error) {
	if r.Cigar == "*" {
		return nil, nil
	}
	return sam.ParseCigar([]byte(r.Cigar))
}

// leftClip returns the number of hard-clipped bases preceding the first
// aligned-match run.
func leftClip(ops sam.Cigar) int {
	n := 0
	for _, op := range ops {
		if op.Type() == sam.CigarMatch {
			break
		}
		if op.Type() == sam.CigarHardClipped {
			n += op.Len()
		}
	}
	return n
}

// rightClip returns the number of hard-clipped bases following the last
// aligned-match run.
func rightClip(ops sam.Cigar) int {
	n := 0
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Type() == sam.CigarMatch {
			break
		}
		if ops[i].Type() == sam.CigarHardClipped {
			n += ops[i].Len()
		}
	}
	return n
}

// longestMatch returns the length of the longest aligned-match run.
func longestMatch(ops sam.Cigar) int {
	max := 0
	for _, op := range ops {
		if op.Type() == sam.CigarMatch && op.Len() > max {
			max = op.Len()
		}
	}
	return max
}

var complement [256]byte

func init() {
	for i := range complement {
		complement[i] = byte(i)
	}
	for _, p := range [][2]byte{{'A', 'T'}, {'C', 'G'}, {'a', 't'}, {'c', 'g'}} {
		complement[p[0]] = p[1]
		complement[p[1]] = p[0]
	}
}

// reverseComplement computes the reverse complement of the given DNA string.
// Bases without a complement (e.g. N) are kept as is.
func reverseComplement(seq string) string {
	buf := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		buf[i] = complement[seq[len(seq)-1-i]]
	}
	return string(buf)
}
