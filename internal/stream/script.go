package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScriptStep is one scripted increment: a chunk of text preceded by a
// delay.
type ScriptStep struct {
	Chunk   string `yaml:"chunk"`
	DelayMs int    `yaml:"delay_ms"`
}

type scriptFile struct {
	Steps []ScriptStep `yaml:"steps"`
}

// Script replays chunk/delay pairs, simulating the irregular chunking
// of a remote stream without a network.
type Script struct {
	steps []ScriptStep
	pos   int
}

func NewScript(steps []ScriptStep) *Script {
	return &Script{steps: steps}
}

// LoadScript reads a script from a YAML file of the form:
//
//	steps:
//	  - chunk: "# Title\n\nSome "
//	    delay_ms: 200
//	  - chunk: "**bold"
//	    delay_ms: 50
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("script %s has no steps", path)
	}
	return NewScript(f.Steps), nil
}

func (s *Script) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.steps) {
		return "", io.EOF
	}
	step := s.steps[s.pos]
	s.pos++

	if d := time.Duration(step.DelayMs) * time.Millisecond; d > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
	}
	return step.Chunk, nil
}
