// Package bow computes term-frequency ("bag-of-words") matrices over a
// corpus of text documents, both as a single-process baseline and
// distributed over a group of cooperating workers, so the two can be
// compared for speed-up.
package bow

import (
	"time"

	"github.com/amankumarsingh77/bow_bench/internal/tokenizer"
)

const (
	SerialArtifact   = "bow_serial.csv"
	ParallelArtifact = "bow_parallel.csv"

	defaultOutputDir = "results"
)

// ExperimentConfig is immutable input for one experiment run. DocumentPaths
// are pre-resolved readable file paths; resolution happens in the corpus
// package before the pipeline is entered. Workers is the configured worker
// count: advisory only, a group of a different size is logged by the
// parallel run and the actual size wins.
type ExperimentConfig struct {
	Workers       int
	Experiments   int
	OutputDir     string
	DocumentPaths []string
	Analyzer      *tokenizer.Analyzer
}

func (c *ExperimentConfig) outputDir() string {
	if c.OutputDir == "" {
		return defaultOutputDir
	}
	return c.OutputDir
}

// ExperimentResult carries aggregated timing plus the shape of the produced
// matrix. Meaningful only on the coordinator; other workers return a
// zero value.
type ExperimentResult struct {
	TotalTimeMs   float64
	AverageTimeMs float64
	Documents     int
	VocabTerms    int
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
