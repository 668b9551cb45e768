package bow

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/amankumarsingh77/bow_bench/internal/comm"
	"github.com/amankumarsingh77/bow_bench/internal/corpus"
	"github.com/amankumarsingh77/bow_bench/internal/tokenizer"
)

// RunParallel computes the matrix distributed over the communicator's
// group and writes it to the parallel artifact on the coordinator. It must
// be invoked collectively by every member; callers running repeated
// experiments barrier the group between invocations.
//
// The reported time is the maximum elapsed time across all members,
// measured from just before partitioning to just after the barrier that
// follows artifact writing.
func RunParallel(cfg *ExperimentConfig, c comm.Communicator) (ExperimentResult, error) {
	var result ExperimentResult
	if c.Rank() == 0 && cfg.Workers > 0 && cfg.Workers != c.Size() {
		log.Printf("Warning: running with %d workers, but the configuration requested %d", c.Size(), cfg.Workers)
	}
	if len(cfg.DocumentPaths) == 0 {
		return result, nil
	}

	start := time.Now()

	// Partition and count locally. Unreadable and empty documents are
	// skipped by their owner; no row is emitted for them.
	var localCounts []map[string]int
	var localDocIndices []int
	for _, idx := range corpus.Partition(len(cfg.DocumentPaths), c.Rank(), c.Size()) {
		path := cfg.DocumentPaths[idx]
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Could not open the document %s: %v", path, err)
			continue
		}
		if len(content) == 0 {
			continue
		}
		counts := tokenizer.TermCounts(content)
		counts = cfg.Analyzer.Apply(counts)
		localCounts = append(localCounts, counts)
		localDocIndices = append(localDocIndices, idx)
	}

	localVocab := buildVocabulary(localCounts)

	// Vocabulary merge: gather every member's serialized vocabulary, merge
	// on the coordinator, broadcast the canonical bytes back.
	flat, lens, err := c.GatherBytes(EncodeTerms(localVocab))
	if err != nil {
		return result, fmt.Errorf("vocabulary gather failed: %w", err)
	}
	var vocabBytes []byte
	if c.Rank() == 0 {
		merged, err := MergeTermChunks(flat, lens)
		if err != nil {
			return result, fmt.Errorf("vocabulary merge failed: %w", err)
		}
		vocabBytes = EncodeTerms(merged)
	}
	vocabBytes, err = c.BroadcastBytes(vocabBytes)
	if err != nil {
		return result, fmt.Errorf("vocabulary broadcast failed: %w", err)
	}
	globalTerms, err := DecodeTerms(vocabBytes)
	if err != nil {
		return result, fmt.Errorf("canonical vocabulary is unreadable: %w", err)
	}
	vocab := NewVocabulary(globalTerms)

	// Encode local rows against the canonical vocabulary, flattened in the
	// same order as the owned document indices.
	flatRows := make([]int, 0, len(localCounts)*vocab.Len())
	for _, counts := range localCounts {
		flatRows = append(flatRows, encodeRow(counts, vocab)...)
	}

	rowCounts, err := c.GatherInt(len(localCounts))
	if err != nil {
		return result, fmt.Errorf("row count gather failed: %w", err)
	}
	gatheredIndices, err := c.GatherInts(localDocIndices)
	if err != nil {
		return result, fmt.Errorf("document index gather failed: %w", err)
	}
	gatheredValues, err := c.GatherInts(flatRows)
	if err != nil {
		return result, fmt.Errorf("row value gather failed: %w", err)
	}

	if c.Rank() == 0 {
		totalRows := 0
		for _, n := range rowCounts {
			totalRows += n
		}
		result.Documents = totalRows
		result.VocabTerms = vocab.Len()

		if totalRows == 0 {
			log.Printf("Warning: no document rows were produced, skipping %s", ParallelArtifact)
		} else {
			names, matrix, err := reassemble(cfg, vocab, gatheredIndices, gatheredValues, totalRows)
			if err != nil {
				return result, err
			}
			outPath := filepath.Join(cfg.outputDir(), ParallelArtifact)
			if err := WriteMatrixCSV(outPath, vocab.Terms, names, matrix); err != nil {
				return result, err
			}
		}
	}

	// Every member crosses the barrier after the artifact is written, so
	// coordinator I/O counts toward the critical path.
	if err := c.Barrier(); err != nil {
		return result, fmt.Errorf("final barrier failed: %w", err)
	}

	maxElapsed, err := c.ReduceMax(msSince(start))
	if err != nil {
		return result, fmt.Errorf("timing reduction failed: %w", err)
	}
	if c.Rank() == 0 {
		result.TotalTimeMs = maxElapsed
		result.AverageTimeMs = maxElapsed
	}
	return result, nil
}

// reassemble pairs every gathered row with its original document index and
// restores corpus order. Arrival order across members carries no ordering
// guarantee; only the carried indices do.
func reassemble(cfg *ExperimentConfig, vocab *Vocabulary, gatheredIndices, gatheredValues [][]int, totalRows int) ([]string, [][]int, error) {
	indices := make([]int, 0, totalRows)
	for _, chunk := range gatheredIndices {
		indices = append(indices, chunk...)
	}
	values := make([]int, 0, totalRows*vocab.Len())
	for _, chunk := range gatheredValues {
		values = append(values, chunk...)
	}
	if len(indices) != totalRows {
		return nil, nil, fmt.Errorf("gathered %d document indices for %d rows", len(indices), totalRows)
	}
	if len(values) != totalRows*vocab.Len() {
		return nil, nil, fmt.Errorf("gathered %d row values, expected %d", len(values), totalRows*vocab.Len())
	}

	type docRow struct {
		index int
		row   []int
	}
	rows := make([]docRow, 0, totalRows)
	offset := 0
	for i := 0; i < totalRows; i++ {
		rows = append(rows, docRow{index: indices[i], row: values[offset : offset+vocab.Len()]})
		offset += vocab.Len()
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].index < rows[j].index })

	names := make([]string, 0, totalRows)
	matrix := make([][]int, 0, totalRows)
	for _, r := range rows {
		names = append(names, filepath.Base(cfg.DocumentPaths[r.index]))
		matrix = append(matrix, r.row)
	}
	return names, matrix, nil
}
