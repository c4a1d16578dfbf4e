// Package loader reads seed files: saved upgrade levels and accumulator amounts
// that let a run resume close to its goal.
package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
)

// ErrUnknownFormat is returned for seed files with an unsupported extension
var ErrUnknownFormat = errors.New("unknown seed file format")

// LogValue is a log10 amount. In JSON and YAML a number is taken as the log10
// value itself, a string such as "1.2e345" as the amount in game notation.
type LogValue float64

// UnmarshalJSON accepts a number or a game-notation string
func (v *LogValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return v.parse(s)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = LogValue(f)
	return nil
}

// UnmarshalYAML accepts a number or a game-notation string
func (v *LogValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number or string", node.Line)
	}
	if node.Tag == "!!str" {
		return v.parse(node.Value)
	}
	var f float64
	if err := node.Decode(&f); err != nil {
		return err
	}
	*v = LogValue(f)
	return nil
}

func (v *LogValue) parse(s string) error {
	f, err := logmath.Parse(s)
	if err != nil {
		return err
	}
	*v = LogValue(f)
	return nil
}

type seedFile struct {
	Levels       []uint32            `json:"levels" yaml:"levels"`
	Accumulators map[string]LogValue `json:"accumulators" yaml:"accumulators"`
	Values       map[string]float64  `json:"values" yaml:"values"`
}

func (f seedFile) seed() models.Seed {
	s := models.Seed{Levels: f.Levels, Values: f.Values}
	if len(f.Accumulators) > 0 {
		s.Accumulators = make(map[string]float64, len(f.Accumulators))
		for name, v := range f.Accumulators {
			s.Accumulators[name] = float64(v)
		}
	}
	return s
}

// LoadSeed reads a seed from a .json, .yaml/.yml or .txt file
func LoadSeed(path string) (models.Seed, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".yaml", ".yml", ".txt":
	default:
		return models.Seed{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return models.Seed{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	var sf seedFile
	switch ext {
	case ".json":
		err = json.NewDecoder(file).Decode(&sf)
	case ".txt":
		sf, err = parseText(file)
	default:
		err = yaml.NewDecoder(file).Decode(&sf)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return models.Seed{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return sf.seed(), nil
}

// parseText reads the line format
//
//	# comment
//	levels 12 40 3
//	acc rho 1.2e345
//	value tol 0.5
//
// Accumulator amounts are in game notation.
func parseText(r io.Reader) (seedFile, error) {
	var sf seedFile
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "levels":
			for _, f := range fields[1:] {
				lvl, err := strconv.ParseUint(f, 10, 32)
				if err != nil {
					return sf, fmt.Errorf("line %d: bad level %q", lineNum, f)
				}
				sf.Levels = append(sf.Levels, uint32(lvl))
			}
		case "acc":
			if len(fields) != 3 {
				return sf, fmt.Errorf("line %d: want \"acc <name> <amount>\"", lineNum)
			}
			v, err := logmath.Parse(fields[2])
			if err != nil {
				return sf, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if sf.Accumulators == nil {
				sf.Accumulators = make(map[string]LogValue)
			}
			sf.Accumulators[fields[1]] = LogValue(v)
		case "value":
			if len(fields) != 3 {
				return sf, fmt.Errorf("line %d: want \"value <name> <number>\"", lineNum)
			}
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return sf, fmt.Errorf("line %d: bad value %q", lineNum, fields[2])
			}
			if sf.Values == nil {
				sf.Values = make(map[string]float64)
			}
			sf.Values[fields[1]] = v
		default:
			return sf, fmt.Errorf("line %d: unknown key %q", lineNum, fields[0])
		}
	}
	return sf, scanner.Err()
}
