package experiment_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amankumarsingh77/bow_bench/config"
	"github.com/amankumarsingh77/bow_bench/internal/bow"
	"github.com/amankumarsingh77/bow_bench/internal/comm"
	"github.com/amankumarsingh77/bow_bench/internal/experiment"
)

func TestNewStoreRejectsEmptyDSN(t *testing.T) {
	store, err := experiment.NewStore(&config.ResultsConfig{})
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "DSN")
}

// fakeSaver records the runs handed to it and can fail on demand.
type fakeSaver struct {
	records []experiment.RunRecord
	err     error
}

func (f *fakeSaver) SaveRun(run experiment.RunRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, run)
	return nil
}

func runGroupWithSaver(t *testing.T, cfg *bow.ExperimentConfig, size int, saver experiment.RunSaver) {
	t.Helper()
	members, err := comm.NewLocalGroup(size)
	require.NoError(t, err)

	errs := make([]error, size)
	var wg sync.WaitGroup
	for r := 0; r < size; r++ {
		wg.Add(1)
		go func(rank int, c comm.Communicator) {
			defer wg.Done()
			var s experiment.RunSaver
			if rank == 0 {
				s = saver
			}
			_, errs[rank] = experiment.Run(cfg, c, s)
		}(r, members[r])
	}
	wg.Wait()

	for r, err := range errs {
		require.NoError(t, err, "rank %d", r)
	}
}

func timingCorpus(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.txt": "gopher gopher badger",
		"b.txt": "badger stoat",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
}

func TestRunPersistsEveryMeasurement(t *testing.T) {
	cfg := &bow.ExperimentConfig{
		Experiments:   2,
		OutputDir:     t.TempDir(),
		DocumentPaths: timingCorpus(t),
	}

	saver := &fakeSaver{}
	runGroupWithSaver(t, cfg, 2, saver)

	// one serial and one parallel record per experiment, in that order
	require.Len(t, saver.records, 4)
	runID := saver.records[0].RunID
	require.NotEmpty(t, runID)
	for i, run := range saver.records {
		assert.Equal(t, runID, run.RunID, "record %d", i)
		assert.Equal(t, 2, run.Documents, "record %d", i)
		assert.Equal(t, 3, run.VocabTerms, "record %d", i)
		assert.Greater(t, run.ElapsedMs, 0.0, "record %d", i)
		if i%2 == 0 {
			assert.Equal(t, "serial", run.Mode, "record %d", i)
			assert.Equal(t, 1, run.Workers, "record %d", i)
		} else {
			assert.Equal(t, "parallel", run.Mode, "record %d", i)
			assert.Equal(t, 2, run.Workers, "record %d", i)
		}
	}
}

func TestRunToleratesSaverFailures(t *testing.T) {
	cfg := &bow.ExperimentConfig{
		Experiments:   1,
		OutputDir:     t.TempDir(),
		DocumentPaths: timingCorpus(t),
	}

	saver := &fakeSaver{err: errors.New("connection refused")}
	runGroupWithSaver(t, cfg, 2, saver)
	assert.Empty(t, saver.records)
}
