package config

import "time"

type Config struct {
	Workers     int
	ListPath    string
	Experiments int
	OutputDir   string
	Analyzer    AnalyzerConfig
	Results     ResultsConfig
	Cluster     ClusterConfig
}

// AnalyzerConfig gates the optional analyzer chain applied after the
// canonical ASCII tokenizer. Everything off keeps the matrix byte-stable
// across runs.
type AnalyzerConfig struct {
	Enabled         bool
	FilterStopwords bool
	Stem            bool
}

type ResultsConfig struct {
	DSN string
}

type ClusterConfig struct {
	ListenAddr  string
	CoordAddr   string
	DialTimeout time.Duration
}
