// Package fasta contains code for parsing FASTA files.  Briefly, FASTA files
// consist of a number of named sequences that may be interrupted by newlines.
// For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appearing after a space is ignored.
// For example, '>chr1 A viral sequence' becomes 'chr1'.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB
)

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Seq returns the full sequence with the given name.
	Seq(seqName string) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New creates a new Fasta that holds all the FASTA data from the given reader
// in memory.  Sequences are normalized to upper case.  Duplicate sequence
// names are rejected.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	var seqName string
	var seq strings.Builder
	store := func() error {
		if _, found := f.seqs[seqName]; found {
			return errors.Errorf("malformed FASTA file: duplicate sequence name %s", seqName)
		}
		f.seqs[seqName] = strings.ToUpper(seq.String())
		f.seqNames = append(f.seqNames, seqName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if seqName != "" {
				if err := store(); err != nil {
					return nil, err
				}
			}
			seqName = strings.Split(strings.TrimSpace(line[1:]), " ")[0]
			if seqName == "" {
				return nil, errors.Errorf("malformed FASTA file: empty sequence name")
			}
		} else {
			if seqName == "" {
				return nil, errors.Errorf("malformed FASTA file: sequence data before first header")
			}
			seq.WriteString(line)
		}
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if seqName == "" {
		return nil, errors.Errorf("empty FASTA file")
	}
	if err := store(); err != nil {
		return nil, err
	}
	return f, nil
}

// Seq implements Fasta.Seq().
func (f *fasta) Seq(seqName string) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	return s, nil
}

// Len implements Fasta.Len().
func (f *fasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}
