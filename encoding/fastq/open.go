package fastq

import (
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Open opens a read source for scanning.  A source is normally a file path;
// files ending in .gz are transparently decompressed.  A source starting with
// "|" names a command whose standard output is the source.  The command is
// run through the shell so that constructs like process substitution work.
func Open(source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "|") {
		return openProcess(strings.TrimPrefix(source, "|"))
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", source)
	}
	if !strings.HasSuffix(source, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "gzip %s", source)
	}
	return &gzipReadCloser{gz: gz, file: f}, nil
}

type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (r *gzipReadCloser) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *gzipReadCloser) Close() error {
	err := r.gz.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func openProcess(command string) (io.ReadCloser, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell, "-c", command)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "pipe for %s", command)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", command)
	}
	return &processReadCloser{cmd: cmd, stdout: stdout}, nil
}

type processReadCloser struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (r *processReadCloser) Read(p []byte) (int, error) { return r.stdout.Read(p) }

// Close drains the remaining output so the child is not killed by a broken
// pipe, then reaps it.
func (r *processReadCloser) Close() error {
	_, _ = io.Copy(ioutil.Discard, r.stdout)
	return r.cmd.Wait()
}
