package fastq

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAG
+
AAAAAEEEEEEE#EEAEEEEEEEEEE
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATAC
+
AAAAAEEEEEEE#EEEEEEEEEEEEE
`

func stringScanner(s string) *Scanner {
	return NewScanner(bytes.NewReader([]byte(s)))
}

func scanErr(s string) error {
	scan := stringScanner(s)
	var r Read
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestScanner(t *testing.T) {
	scan := stringScanner(fq)
	var reads []Read
	var r Read
	for scan.Scan(&r) {
		reads = append(reads, r)
	}
	require.NoError(t, scan.Err())
	require.Equal(t, 2, len(reads))
	assert.Equal(t, "@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG", reads[0].ID)
	assert.Equal(t, "ATACAGGCCTGANCCACTGTGCCCAG", reads[0].Seq)
	assert.Equal(t, "+", reads[0].Unk)
	assert.Equal(t, "AAAAAEEEEEEE#EEAEEEEEEEEEE", reads[0].Qual)
	assert.Equal(t, "CTCAACTCTGAGNCAGACAGAAATAC", reads[1].Seq)
}

func TestScannerErrors(t *testing.T) {
	assert.Equal(t, ErrInvalid, scanErr("bad\nACGT\n+\nFFFF\n"))
	assert.Equal(t, ErrInvalid, scanErr("@ok\nACGT\nbad\nFFFF\n"))
	assert.Equal(t, ErrShort, scanErr("@ok\nACGT\n+\n"))
	assert.NoError(t, scanErr(""))
}

func TestPairScanner(t *testing.T) {
	scan := NewPairScanner(bytes.NewReader([]byte(fq)), bytes.NewReader([]byte(fq)))
	var r1, r2 Read
	n := 0
	for scan.Scan(&r1, &r2) {
		assert.Equal(t, r1.ID, r2.ID)
		n++
	}
	require.NoError(t, scan.Err())
	assert.Equal(t, 2, n)
}

func TestPairScannerDiscordant(t *testing.T) {
	short := "@a\nACGT\n+\nFFFF\n"
	scan := NewPairScanner(bytes.NewReader([]byte(fq)), bytes.NewReader([]byte(short)))
	var r1, r2 Read
	for scan.Scan(&r1, &r2) {
	}
	assert.Equal(t, ErrDiscordant, scan.Err())
}

func TestOpenGzip(t *testing.T) {
	dir, err := ioutil.TempDir("", "fastq")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "reads.fastq.gz")
	buf := bytes.Buffer{}
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write([]byte(fq))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))

	in, err := Open(path)
	require.NoError(t, err)
	defer in.Close()
	scan := NewScanner(in)
	var r Read
	n := 0
	for scan.Scan(&r) {
		n++
	}
	require.NoError(t, scan.Err())
	assert.Equal(t, 2, n)
}

func TestOpenProcess(t *testing.T) {
	in, err := Open("|printf '@a\\nACGT\\n+\\nFFFF\\n'")
	require.NoError(t, err)
	scan := NewScanner(in)
	var r Read
	require.True(t, scan.Scan(&r))
	assert.Equal(t, "@a", r.ID)
	assert.Equal(t, "ACGT", r.Seq)
	require.NoError(t, scan.Err())
	require.NoError(t, in.Close())
}
