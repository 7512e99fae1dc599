package meth

// Opts is the collection of options for the alignment pipeline.
type Opts struct {
	// Threads is the number of aligner threads (bwa mem -t).
	Threads int
	// ReadGroup is the read-group header passed to the aligner.  If it does
	// not start with "@RG", an ID/SM pair is synthesized from it.  If empty,
	// a name is derived from the input file names.
	ReadGroup string
	// SetAsFailed marks every alignment to the given converted strand ("f"
	// or "r") as a QC failure (0x200).  Targeted bisulfite libraries are
	// often prepared from a single strand, so alignments to the other one
	// can be flagged up front.  Note f == OT, r == OB.
	SetAsFailed string
	// Interleaved indicates that R1 and R2 records alternate within a single
	// input (e.g. seqtk mergepe output).
	Interleaved bool
	// NoChimeraPenalty disables the short-match QC heuristic.
	NoChimeraPenalty bool
	// MinMatchFraction is the minimum fraction of the original read length
	// that the longest aligned-match run must cover.  Alignments below the
	// threshold are flagged as QC failures, unpaired, and capped at MAPQ 1;
	// converted references inflate false positive seed matches, so a short
	// true match is a strong chimera signal.
	MinMatchFraction float64
	// ExtraArgs are forwarded to the aligner verbatim.
	ExtraArgs []string
}

// DefaultOpts sets the default values of Opts.
var DefaultOpts = Opts{
	Threads:          6,
	MinMatchFraction: 0.44,
}
