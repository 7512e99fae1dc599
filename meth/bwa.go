package meth

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Align runs the full pipeline: reads from r1List/r2List are converted and
// streamed into bwa mem against the converted reference at refPath, and the
// aligner's output is decoded back onto the original reference and written to
// out.  commandLine is recorded in the output header.
func Align(refPath, r1List, r2List, commandLine string, out io.Writer, opts Opts) error {
	if _, err := exec.LookPath("bwa"); err != nil {
		return fmt.Errorf("executable for \"bwa\" not found in PATH")
	}
	conv := ConvertedName(refPath)
	if _, err := os.Stat(conv); err != nil {
		return fmt.Errorf("reference %s is not converted; run the index command first", refPath)
	}

	rg := opts.ReadGroup
	if rg == "" {
		name := deriveReadGroupName(r1List, r2List)
		rg = fmt.Sprintf(`@RG\tID:%s\tSM:%s`, name, name)
	} else if !strings.HasPrefix(rg, "@RG") {
		rg = fmt.Sprintf(`@RG\tID:%s\tSM:%s`, rg, rg)
	}

	paired := r2List != "" || opts.Interleaved
	args := []string{"mem", "-T", "40", "-B", "2", "-L", "10", "-CM"}
	if paired {
		args = append(args, "-U", "100", "-p")
	}
	args = append(args, "-R", rg, "-t", strconv.Itoa(opts.Threads))
	args = append(args, opts.ExtraArgs...)
	args = append(args, conv, "/dev/stdin")

	if r2List == "" {
		r2List = strings.Repeat(",NA", strings.Count(r1List, ",")+1)[1:]
	}

	cmd := exec.Command("bwa", args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	log.Printf("running: bwa %s", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return err
	}

	e := errors.Once{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, cerr := ConvertReads(r1List, r2List, stdin)
		e.Set(cerr)
		e.Set(stdin.Close())
	}()
	if derr := Decode(stdout, out, commandLine, opts); derr != nil {
		e.Set(derr)
		// Unblock the converter if the aligner is wedged.
		_ = cmd.Process.Kill()
	}
	wg.Wait()
	if werr := cmd.Wait(); werr != nil && e.Err() == nil {
		e.Set(fmt.Errorf("bwa mem failed: %v", werr))
	}
	return e.Err()
}

// deriveReadGroupName builds a read group name from the input file names: the
// characters their stripped base names share position by position.
func deriveReadGroupName(r1List, r2List string) string {
	var stems []string
	for _, list := range []string{r1List, r2List} {
		for _, src := range strings.Split(list, ",") {
			if src == "" || src == "NA" {
				continue
			}
			stems = append(stems, stripFastqName(filepath.Base(src)))
		}
	}
	if len(stems) == 0 {
		return "bm"
	}
	name := stems[0]
	for _, s := range stems[1:] {
		name = commonChars(name, s)
	}
	if name == "" {
		return "bm"
	}
	return name
}

func stripFastqName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".fastq")
	for _, suffix := range []string{".fq", ".r1", ".r2"} {
		if strings.HasSuffix(name, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

func commonChars(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var buf []byte
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			buf = append(buf, a[i])
		}
	}
	return string(buf)
}
