package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shulgin/pipevine/internal/domain"
)

// ErrNoDagBlock — файл pipeline не содержит блока "dag".
var ErrNoDagBlock = errors.New("pipeline file has no dag block")

// pipelineFile — формат YAML-файла определения pipeline.
type pipelineFile struct {
	Dag *domain.PipelineDef `yaml:"dag"`
}

// LoadPipeline читает определение pipeline из YAML-файла.
func LoadPipeline(path string) (*domain.PipelineDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}
	return ParsePipeline(raw)
}

// ParsePipeline разбирает определение pipeline из YAML-содержимого.
func ParsePipeline(raw []byte) (*domain.PipelineDef, error) {
	var file pipelineFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse pipeline file: %w", err)
	}
	if file.Dag == nil {
		return nil, ErrNoDagBlock
	}
	return file.Dag, nil
}
