package meth

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/meth/encoding/fasta"
)

const (
	convertedSuffix = ".methalign.c2t"
	// Converted references are rewrapped at a fixed width, regardless of the
	// input line layout.
	wrapWidth = 100
)

// ConvertedName returns the path of the converted reference derived from the
// given reference path.
func ConvertedName(refPath string) string {
	return refPath + convertedSuffix
}

// upToDate reports whether every target exists and is not older than source.
func upToDate(source string, targets ...string) bool {
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	for _, target := range targets {
		ti, err := os.Stat(target)
		if err != nil || ti.ModTime().Before(si.ModTime()) {
			return false
		}
	}
	return true
}

// ConvertReference writes the in-silico converted reference next to refPath:
// for every input sequence, a reverse-tagged copy with all G→A substitutions
// followed by a forward-tagged copy with all C→T substitutions.  Conversion
// is skipped when the output is already newer than the input.  A partially
// written output is removed on failure so a later freshness check cannot
// mistake it for a complete one.
func ConvertReference(refPath string) (string, error) {
	outPath := ConvertedName(refPath)
	if upToDate(refPath, outPath) {
		log.Printf("already converted: %s", outPath)
		return outPath, nil
	}
	log.Printf("converting %s to %s", refPath, outPath)
	in, err := fasta.Open(refPath)
	if err != nil {
		return "", err
	}
	defer in.Close() // nolint: errcheck
	ref, err := fasta.New(in)
	if err != nil {
		return "", err
	}
	if err := writeConverted(ref, outPath); err != nil {
		_ = os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}

func writeConverted(ref fasta.Fasta, outPath string) (err error) {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(out)
	for _, name := range ref.SeqNames() {
		seq, err := ref.Seq(name)
		if err != nil {
			return err
		}
		if err := writeSeq(w, "r"+name, strings.Replace(seq, "G", "A", -1)); err != nil {
			return err
		}
		if err := writeSeq(w, "f"+name, strings.Replace(seq, "C", "T", -1)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeSeq(w *bufio.Writer, name, seq string) error {
	if _, err := fmt.Fprintf(w, ">%s\n", name); err != nil {
		return err
	}
	for start := 0; start < len(seq); start += wrapWidth {
		end := start + wrapWidth
		if end > len(seq) {
			end = len(seq)
		}
		if _, err := fmt.Fprintf(w, "%s\n", seq[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Indexer identifies which external indexing tool builds the aligner index.
type Indexer int

const (
	// IndexerMem indexes with bwa (the default).
	IndexerMem Indexer = iota
	// IndexerMem2 indexes with bwa-mem2, which writes a different artifact set.
	IndexerMem2
)

func (ix Indexer) tool() string {
	if ix == IndexerMem2 {
		return "bwa-mem2"
	}
	return "bwa"
}

// artifacts lists the index files whose freshness marks an index as built.
func (ix Indexer) artifacts(convPath string) []string {
	if ix == IndexerMem2 {
		return []string{convPath + ".amb", convPath + ".pac"}
	}
	return []string{convPath + ".amb", convPath + ".sa"}
}

// Index builds the aligner index for the converted reference at convPath.
// Indexing is skipped when the index artifacts are already newer than the
// converted reference.  On failure the marker artifact is removed so a rerun
// does not mistake the partial index for a complete one.
func Index(convPath string, ix Indexer) error {
	tool := ix.tool()
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("executable for %q not found in PATH", tool)
	}
	if upToDate(convPath, ix.artifacts(convPath)...) {
		return nil
	}
	log.Printf("indexing with %s: %s", tool, convPath)
	var cmd *exec.Cmd
	if ix == IndexerMem2 {
		cmd = exec.Command(tool, "index", convPath)
	} else {
		cmd = exec.Command(tool, "index", "-a", "bwtsw", convPath)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		amb := convPath + ".amb"
		if _, serr := os.Stat(amb); serr == nil {
			_ = os.Remove(amb)
		}
		return fmt.Errorf("%s index failed for %s: %v", tool, convPath, err)
	}
	return nil
}
