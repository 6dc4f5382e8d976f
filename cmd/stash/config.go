package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML config file. Flags and environment
// variables override anything set here.
type fileConfig struct {
	Database string `yaml:"database"`

	AI struct {
		EmbeddingHost  string `yaml:"embedding_host"`
		AnalyzerHost   string `yaml:"analyzer_host"`
		EmbeddingModel string `yaml:"embedding_model"`
		AnalyzerModel  string `yaml:"analyzer_model"`
		Token          string `yaml:"token"`
	} `yaml:"ai"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Queue    string `yaml:"queue"`
	} `yaml:"redis"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
