package meth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveReadGroupName(t *testing.T) {
	tests := []struct {
		name   string
		r1, r2 string
		want   string
	}{
		{"mate suffix", "sample_R1.fastq.gz", "sample_R2.fastq.gz", "sample_R"},
		{"dot suffix", "a.r1.fq", "a.r2.fq", "a"},
		{"directories ignored", "runs/2020/run1.fastq", "other/run2.fastq", "run"},
		{"single end", "reads.fq", "NA", "reads"},
		{"nothing in common", "x.fq", "y.fq", "bm"},
		{"no sources", "", "", "bm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveReadGroupName(tt.r1, tt.r2))
		})
	}
}

func TestStripFastqName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"sample.fastq", "sample"},
		{"sample.fastq.gz", "sample"},
		{"sample.fq.gz", "sample"},
		{"sample.r1.fq", "sample"},
		{"sample_R1.fastq", "sample_R1"},
		{"sample", "sample"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFastqName(tt.in), tt.in)
	}
}
