package main

import (
	"flag"
	"log"
	"sync"

	"github.com/amankumarsingh77/bow_bench/config"
	"github.com/amankumarsingh77/bow_bench/internal/bow"
	"github.com/amankumarsingh77/bow_bench/internal/comm"
	"github.com/amankumarsingh77/bow_bench/internal/corpus"
	"github.com/amankumarsingh77/bow_bench/internal/experiment"
	"github.com/amankumarsingh77/bow_bench/internal/tokenizer"
)

func main() {
	var (
		configFile  = flag.String("config", "bowbench", "Name of the configuration file")
		mode        = flag.String("mode", "bench", "Mode: bench, serial, coordinator or worker")
		workers     = flag.Int("workers", 0, "Number of workers (overrides config)")
		listPath    = flag.String("list", "", "Path to the document list file (overrides config)")
		experiments = flag.Int("experiments", 0, "Number of experiment repetitions (overrides config)")
		outputDir   = flag.String("out", "", "Output directory for the CSV matrices (overrides config)")
		listenAddr  = flag.String("listen", "", "Coordinator listen address (overrides config)")
		coordAddr   = flag.String("connect", "", "Coordinator address to join (overrides config)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Printf("Failed to load configuration from %s: %v", *configFile, err)
		log.Println("Using default configuration...")
		cfg = config.GetDefaultConfig()
	}

	requested := cfg.Workers
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *listPath != "" {
		cfg.ListPath = *listPath
	}
	if *experiments > 0 {
		cfg.Experiments = *experiments
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *listenAddr != "" {
		cfg.Cluster.ListenAddr = *listenAddr
	}
	if *coordAddr != "" {
		cfg.Cluster.CoordAddr = *coordAddr
	}
	if cfg.Workers < 1 {
		log.Fatalf("Number of workers must be a natural number")
	}
	if cfg.Experiments < 1 {
		log.Fatalf("Number of experiments must be a natural number")
	}

	names, err := corpus.LoadDocumentNames(cfg.ListPath)
	if err != nil {
		log.Fatalf("Failed to load the document list: %v", err)
	}
	paths := corpus.ResolveDocumentPaths(cfg.ListPath, names)
	if len(paths) == 0 {
		log.Fatalf("No document paths could be resolved from %s", cfg.ListPath)
	}
	log.Printf("Detected %d documents from %s", len(paths), cfg.ListPath)

	// The requested worker count rides along so the parallel run can flag a
	// group whose actual size differs. Advisory only.
	bowCfg := &bow.ExperimentConfig{
		Workers:       requested,
		Experiments:   cfg.Experiments,
		OutputDir:     cfg.OutputDir,
		DocumentPaths: paths,
		Analyzer:      tokenizer.NewAnalyzer(&cfg.Analyzer),
	}

	var store experiment.RunSaver
	if cfg.Results.DSN != "" {
		s, err := experiment.NewStore(&cfg.Results)
		if err != nil {
			log.Printf("Results store disabled: %v", err)
		} else {
			defer s.Close()
			store = s
		}
	}

	switch *mode {
	case "serial":
		runSerialOnly(bowCfg)

	case "bench":
		runBench(bowCfg, cfg.Workers, store)

	case "coordinator":
		group, err := comm.ListenGroup(cfg.Cluster.ListenAddr, cfg.Workers)
		if err != nil {
			log.Fatalf("Failed to start the coordinator: %v", err)
		}
		log.Printf("Waiting for %d workers on %s", cfg.Workers-1, group.Addr())
		c, err := group.WaitForWorkers()
		if err != nil {
			log.Fatalf("Failed to assemble the worker group: %v", err)
		}
		defer c.Close()
		summary, err := experiment.Run(bowCfg, c, store)
		if err != nil {
			log.Fatalf("Benchmark failed: %v", err)
		}
		printSummary(summary)

	case "worker":
		c, err := comm.JoinGroup(cfg.Cluster.CoordAddr, cfg.Cluster.DialTimeout)
		if err != nil {
			log.Fatalf("Failed to join the worker group: %v", err)
		}
		defer c.Close()
		log.Printf("Joined as rank %d of %d", c.Rank(), c.Size())
		if _, err := experiment.Run(bowCfg, c, nil); err != nil {
			log.Fatalf("Benchmark failed: %v", err)
		}

	default:
		log.Fatalf("Unknown mode: %s. Use bench, serial, coordinator or worker.", *mode)
	}
}

func runSerialOnly(bowCfg *bow.ExperimentConfig) {
	times := make([]float64, 0, bowCfg.Experiments)
	for i := 0; i < bowCfg.Experiments; i++ {
		log.Printf("[Experiment %d/%d]", i+1, bowCfg.Experiments)
		result, err := bow.RunSerial(bowCfg)
		if err != nil {
			log.Fatalf("Serial run failed: %v", err)
		}
		times = append(times, result.AverageTimeMs)
	}
	summary := experiment.Summarize(times, nil)
	log.Printf("Average serial time: %.3f ms over %d experiments", summary.SerialAvgMs, len(times))
}

// runBench runs the whole group in-process, one goroutine per member.
func runBench(bowCfg *bow.ExperimentConfig, workers int, store experiment.RunSaver) {
	members, err := comm.NewLocalGroup(workers)
	if err != nil {
		log.Fatalf("Failed to create the worker group: %v", err)
	}

	var wg sync.WaitGroup
	var summary *experiment.Summary
	errs := make([]error, workers)
	for rank := 0; rank < workers; rank++ {
		wg.Add(1)
		go func(rank int, c comm.Communicator) {
			defer wg.Done()
			s, err := experiment.Run(bowCfg, c, store)
			errs[rank] = err
			if rank == 0 {
				summary = s
			}
		}(rank, members[rank])
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			log.Fatalf("Worker %d failed: %v", rank, err)
		}
	}
	printSummary(summary)
}

func printSummary(summary *experiment.Summary) {
	log.Println("==== Summary ====")
	log.Printf("Average serial time: %.3f ms", summary.SerialAvgMs)
	log.Printf("Average parallel time: %.3f ms (stddev %.3f ms)", summary.ParallelAvgMs, summary.ParallelStdDevMs)
	log.Printf("Estimated speed-up: %.3f", summary.Speedup)
}
