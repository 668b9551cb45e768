package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

func LoadConfig(filename string) (*Config, error) {
	viper.SetConfigName(filename)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	var config Config
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read the file %w", err)
	}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error reading the config file %w", err)
	}
	return &config, nil
}

func GetDefaultConfig() *Config {
	return &Config{
		Workers:     2,
		ListPath:    "data/books.txt",
		Experiments: 1,
		OutputDir:   "results",
		Analyzer: AnalyzerConfig{
			Enabled: false,
		},
		Cluster: ClusterConfig{
			ListenAddr:  "localhost:7077",
			CoordAddr:   "localhost:7077",
			DialTimeout: 10 * time.Second,
		},
	}
}
