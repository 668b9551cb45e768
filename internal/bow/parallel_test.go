package bow_test

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amankumarsingh77/bow_bench/internal/bow"
	"github.com/amankumarsingh77/bow_bench/internal/comm"
)

// writeDocs creates one file per entry, in order, and returns their paths.
func writeDocs(t *testing.T, docs []struct{ name, content string }) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		path := filepath.Join(dir, doc.name)
		require.NoError(t, os.WriteFile(path, []byte(doc.content), 0644))
		paths = append(paths, path)
	}
	return paths
}

// runParallelGroup runs the distributed pipeline over an in-process group
// and returns the coordinator's result.
func runParallelGroup(t *testing.T, cfg *bow.ExperimentConfig, workers int) bow.ExperimentResult {
	t.Helper()
	members, err := comm.NewLocalGroup(workers)
	require.NoError(t, err)

	results := make([]bow.ExperimentResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for r := 0; r < workers; r++ {
		wg.Add(1)
		go func(rank int, c comm.Communicator) {
			defer wg.Done()
			results[rank], errs[rank] = bow.RunParallel(cfg, c)
		}(r, members[r])
	}
	wg.Wait()

	for r, err := range errs {
		require.NoError(t, err, "rank %d", r)
	}
	return results[0]
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestTwoDocumentsTwoWorkers(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"doc1.txt", "the cat sat"},
		{"doc2.txt", "the dog sat"},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: paths, OutputDir: out}

	result := runParallelGroup(t, cfg, 2)
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 4, result.VocabTerms)
	assert.Greater(t, result.AverageTimeMs, 0.0)

	records := readCSV(t, filepath.Join(out, bow.ParallelArtifact))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"document", "cat", "dog", "sat", "the"}, records[0])
	assert.Equal(t, []string{"doc1.txt", "1", "0", "1", "1"}, records[1])
	assert.Equal(t, []string{"doc2.txt", "0", "1", "1", "1"}, records[2])
}

func TestParallelMatchesSerialForAnyWorkerCount(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", "alpha beta gamma alpha"},
		{"b.txt", "beta delta"},
		{"c.txt", "gamma gamma gamma epsilon"},
		{"d.txt", "alpha epsilon delta beta"},
		{"e.txt", "zeta"},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: paths, OutputDir: out}

	_, err := bow.RunSerial(cfg)
	require.NoError(t, err)
	serialRecords := readCSV(t, filepath.Join(out, bow.SerialArtifact))

	for workers := 1; workers <= len(paths); workers++ {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			runParallelGroup(t, cfg, workers)
			parallelRecords := readCSV(t, filepath.Join(out, bow.ParallelArtifact))
			assert.Equal(t, serialRecords, parallelRecords)

			// every row is as wide as the vocabulary plus the name column
			for _, record := range parallelRecords {
				assert.Len(t, record, len(parallelRecords[0]))
			}
		})
	}
}

func TestRepeatedRunsAreByteIdentical(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", "one two three two"},
		{"b.txt", "three four"},
		{"c.txt", "four five one"},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: paths, OutputDir: out}

	runParallelGroup(t, cfg, 3)
	first, err := os.ReadFile(filepath.Join(out, bow.ParallelArtifact))
	require.NoError(t, err)

	runParallelGroup(t, cfg, 3)
	second, err := os.ReadFile(filepath.Join(out, bow.ParallelArtifact))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWorkersExceedDocumentCount(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", "solo duo"},
		{"b.txt", "duo trio"},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: paths, OutputDir: out}

	result := runParallelGroup(t, cfg, 5)
	assert.Equal(t, 2, result.Documents)

	records := readCSV(t, filepath.Join(out, bow.ParallelArtifact))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"document", "duo", "solo", "trio"}, records[0])
	assert.Equal(t, []string{"a.txt", "1", "1", "0"}, records[1])
	assert.Equal(t, []string{"b.txt", "1", "0", "1"}, records[2])
}

func TestGroupSizeMismatchIsWarningOnly(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", "uno dos"},
		{"b.txt", "dos tres"},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{Workers: 3, DocumentPaths: paths, OutputDir: out}

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	result := runParallelGroup(t, cfg, 2)
	assert.Equal(t, 2, result.Documents)
	assert.Contains(t, logs.String(), "running with 2 workers, but the configuration requested 3")

	records := readCSV(t, filepath.Join(out, bow.ParallelArtifact))
	require.Len(t, records, 3)
}

func TestUnreadableDocumentIsSkipped(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", "first words"},
		{"c.txt", "last words"},
	})
	withMissing := []string{paths[0], filepath.Join(t.TempDir(), "ghost.txt"), paths[1]}
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: withMissing, OutputDir: out}

	result := runParallelGroup(t, cfg, 2)
	assert.Equal(t, 2, result.Documents)

	records := readCSV(t, filepath.Join(out, bow.ParallelArtifact))
	require.Len(t, records, 3)
	assert.Equal(t, "a.txt", records[1][0])
	assert.Equal(t, "c.txt", records[2][0])
}

func TestEmptyCorpusSkipsArtifact(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", ""},
		{"b.txt", ""},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: paths, OutputDir: out}

	result := runParallelGroup(t, cfg, 2)
	assert.Equal(t, 0, result.Documents)

	_, err := os.Stat(filepath.Join(out, bow.ParallelArtifact))
	assert.True(t, os.IsNotExist(err))
}

func TestSerialBaseline(t *testing.T) {
	paths := writeDocs(t, []struct{ name, content string }{
		{"a.txt", "the cat sat"},
		{"b.txt", "the dog sat"},
	})
	out := t.TempDir()
	cfg := &bow.ExperimentConfig{DocumentPaths: paths, OutputDir: out}

	result, err := bow.RunSerial(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 4, result.VocabTerms)
	assert.Greater(t, result.TotalTimeMs, 0.0)

	records := readCSV(t, filepath.Join(out, bow.SerialArtifact))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"document", "cat", "dog", "sat", "the"}, records[0])
}
