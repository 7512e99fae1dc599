package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/meth/meth"
	"v.io/x/lib/cmdline"
)

func newCmdIndex(name, short string, ix meth.Indexer) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     name,
		Short:    short,
		ArgsName: "reference.fa",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("%s takes one reference fasta argument, but got %v", name, argv)
		}
		conv, err := meth.ConvertReference(argv[0])
		if err != nil {
			return err
		}
		return meth.Index(conv, ix)
	})
	return cmd
}

func newCmdC2T() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "c2t",
		Short:    "Convert reads and write the merged FASTQ stream to stdout",
		ArgsName: "r1.fq[,r1b.fq...] [r2.fq[,r2b.fq...]]",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 && len(argv) != 2 {
			return fmt.Errorf("c2t takes one or two read source lists, but got %v", argv)
		}
		r1 := argv[0]
		r2 := strings.Repeat(",NA", strings.Count(r1, ",")+1)[1:]
		if len(argv) == 2 {
			r2 = argv[1]
		}
		_, err := meth.ConvertReads(r1, r2, os.Stdout)
		return err
	})
	return cmd
}

func newCmdAlign() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "align",
		Short:    "Convert, align with bwa mem, and decode to stdout",
		ArgsName: "r1.fq[,r1b.fq...] [r2.fq[,r2b.fq...]] [-- extra bwa args]",
	}
	opts := meth.DefaultOpts
	refFlag := cmd.Flags.String("reference", "", "Reference fasta; must already be indexed with the index command")
	cmd.Flags.IntVar(&opts.Threads, "threads", opts.Threads, "Number of aligner threads")
	cmd.Flags.IntVar(&opts.Threads, "t", opts.Threads, "Alias for -threads")
	cmd.Flags.StringVar(&opts.ReadGroup, "read-group", "", `Read-group header line, e.g. '@RG\tID:foo\tSM:bar'; a bare name gets ID/SM synthesized`)
	cmd.Flags.StringVar(&opts.SetAsFailed, "set-as-failed", "", `Flag alignments to this strand ("f" or "r") as QC failures (0x200). For libraries prepared from only one strand. Note f == OT, r == OB`)
	cmd.Flags.BoolVar(&opts.Interleaved, "interleaved", false, "R1 and R2 alternate within a single input")
	cmd.Flags.BoolVar(&opts.Interleaved, "p", false, "Alias for -interleaved")
	cmd.Flags.BoolVar(&opts.NoChimeraPenalty, "do-not-penalize-chimeras", false, "Do not flag short-match chimeric alignments as QC failures")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if *refFlag == "" {
			return fmt.Errorf("align requires -reference")
		}
		if opts.SetAsFailed != "" && opts.SetAsFailed != "f" && opts.SetAsFailed != "r" {
			return fmt.Errorf(`-set-as-failed must be "f" or "r", got %q`, opts.SetAsFailed)
		}
		// Arguments after "--" are forwarded to bwa verbatim.
		reads := argv
		for i, arg := range argv {
			if arg == "--" {
				reads = argv[:i]
				opts.ExtraArgs = argv[i+1:]
				break
			}
		}
		if len(reads) != 1 && len(reads) != 2 {
			return fmt.Errorf("align takes one or two read source lists, but got %v", reads)
		}
		r1 := reads[0]
		r2 := ""
		if len(reads) == 2 {
			r2 = reads[1]
		}
		return meth.Align(*refFlag, r1, r2, commandLine(), os.Stdout, opts)
	})
	return cmd
}

// commandLine reconstructs the invocation for the output header.  Tabs are
// escaped so a pasted read group does not break the header's own tab
// delimiting.
func commandLine() string {
	return strings.Replace(strings.Join(os.Args, " "), "\t", `\t`, -1)
}

// subcommands are the names recognized at the top level.  Anything else in
// the first argument position means the user skipped the default subcommand.
var subcommands = map[string]bool{
	"index":      true,
	"index-mem2": true,
	"c2t":        true,
	"align":      true,
	"help":       true,
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "-help" || arg == "--help"
}

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if len(os.Args) > 1 && !subcommands[os.Args[1]] && !isHelpFlag(os.Args[1]) {
		// Alignment is the default operation.
		os.Args = append([]string{os.Args[0], "align"}, os.Args[1:]...)
	}
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-methalign",
			Short:    "Align bisulfite-converted reads with bwa mem",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdIndex("index", "Convert a reference and index it with bwa", meth.IndexerMem),
				newCmdIndex("index-mem2", "Convert a reference and index it with bwa-mem2", meth.IndexerMem2),
				newCmdC2T(),
				newCmdAlign(),
			},
		})
}
