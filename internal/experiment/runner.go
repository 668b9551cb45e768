// Package experiment drives repeated serial and distributed runs of the
// bag-of-words pipeline and aggregates their timings into a speed-up
// summary.
package experiment

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/amankumarsingh77/bow_bench/internal/bow"
	"github.com/amankumarsingh77/bow_bench/internal/comm"
)

// Summary aggregates timings across all experiments. Produced only on the
// coordinator.
type Summary struct {
	Experiments      int
	SerialAvgMs      float64
	ParallelAvgMs    float64
	ParallelStdDevMs float64
	Speedup          float64
}

// Run executes the configured number of experiments as one member of the
// group. Each iteration runs the serial baseline on the coordinator, then
// the distributed pipeline on everyone, with group-wide barriers keeping
// the iterations synchronized. The summary is returned on the coordinator
// and is nil elsewhere.
func Run(cfg *bow.ExperimentConfig, c comm.Communicator, store RunSaver) (*Summary, error) {
	if cfg.Experiments < 1 {
		return nil, fmt.Errorf("at least one experiment is required, got %d", cfg.Experiments)
	}

	runID := uuid.New().String()
	serialTimes := make([]float64, 0, cfg.Experiments)
	parallelTimes := make([]float64, 0, cfg.Experiments)

	for i := 0; i < cfg.Experiments; i++ {
		if c.Rank() == 0 {
			log.Printf("[Experiment %d/%d]", i+1, cfg.Experiments)
			serialResult, err := bow.RunSerial(cfg)
			if err != nil {
				return nil, fmt.Errorf("serial run %d failed: %w", i+1, err)
			}
			serialTimes = append(serialTimes, serialResult.AverageTimeMs)
			logRunningAverage("serial", serialTimes)
			saveRun(store, runID, "serial", 1, serialResult)
		}

		if err := c.Barrier(); err != nil {
			return nil, err
		}
		parallelResult, err := bow.RunParallel(cfg, c)
		if err != nil {
			return nil, fmt.Errorf("parallel run %d failed on rank %d: %w", i+1, c.Rank(), err)
		}
		if err := c.Barrier(); err != nil {
			return nil, err
		}

		if c.Rank() == 0 {
			parallelTimes = append(parallelTimes, parallelResult.AverageTimeMs)
			logRunningAverage("parallel", parallelTimes)
			saveRun(store, runID, "parallel", c.Size(), parallelResult)
		}
	}

	if c.Rank() != 0 {
		return nil, nil
	}
	return Summarize(serialTimes, parallelTimes), nil
}

// Summarize reduces the collected timings to averages and the resulting
// speed-up estimate.
func Summarize(serialMs, parallelMs []float64) *Summary {
	summary := &Summary{Experiments: len(parallelMs)}
	if len(serialMs) > 0 {
		summary.SerialAvgMs, _ = stats.Mean(serialMs)
	}
	if len(parallelMs) > 0 {
		summary.ParallelAvgMs, _ = stats.Mean(parallelMs)
		summary.ParallelStdDevMs, _ = stats.StandardDeviation(parallelMs)
	}
	if summary.ParallelAvgMs > 0 {
		summary.Speedup = summary.SerialAvgMs / summary.ParallelAvgMs
	}
	return summary
}

func logRunningAverage(mode string, times []float64) {
	avg, err := stats.Mean(times)
	if err != nil {
		return
	}
	log.Printf("  Accumulated %s average: %.3f ms", mode, avg)
}

func saveRun(store RunSaver, runID, mode string, workers int, result bow.ExperimentResult) {
	if store == nil {
		return
	}
	run := RunRecord{
		RunID:      runID,
		Mode:       mode,
		Workers:    workers,
		Documents:  result.Documents,
		VocabTerms: result.VocabTerms,
		ElapsedMs:  result.AverageTimeMs,
	}
	if err := store.SaveRun(run); err != nil {
		log.Printf("Failed to persist the %s run: %v", mode, err)
	}
}
