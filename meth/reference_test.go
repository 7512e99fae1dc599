package meth

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRef(t *testing.T, dir, content string) string {
	path := filepath.Join(dir, "ref.fa")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConvertReference(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ref := writeRef(t, tempDir, ">chr1\nACGTACGT\ncCgG\n>chr2 description\nTTTT\n")

	outPath, err := ConvertReference(ref)
	require.NoError(t, err)
	assert.Equal(t, ref+".methalign.c2t", outPath)

	got, err := ioutil.ReadFile(outPath)
	require.NoError(t, err)
	want := ">rchr1\nACATACATCCAA\n" +
		">fchr1\nATGTATGTTTGG\n" +
		">rchr2\nTTTT\n" +
		">fchr2\nTTTT\n"
	assert.Equal(t, want, string(got))
}

func TestConvertReferenceWraps(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	seq := strings.Repeat("A", 205)
	ref := writeRef(t, tempDir, ">chr1\n"+seq+"\n")

	outPath, err := ConvertReference(ref)
	require.NoError(t, err)
	got, err := ioutil.ReadFile(outPath)
	require.NoError(t, err)
	wantSeq := strings.Repeat("A", 100) + "\n" + strings.Repeat("A", 100) + "\n" + strings.Repeat("A", 5) + "\n"
	assert.Equal(t, ">rchr1\n"+wantSeq+">fchr1\n"+wantSeq, string(got))
}

func TestConvertReferenceUpToDate(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ref := writeRef(t, tempDir, ">chr1\nACGT\n")

	outPath, err := ConvertReference(ref)
	require.NoError(t, err)
	firstInfo, err := os.Stat(outPath)
	require.NoError(t, err)

	// A fresh output is left alone.
	_, err = ConvertReference(ref)
	require.NoError(t, err)
	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Equal(t, firstInfo.ModTime(), info.ModTime())

	// A stale output is rebuilt.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(outPath, past, past))
	_, err = ConvertReference(ref)
	require.NoError(t, err)
	info, err = os.Stat(outPath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(past))
}
