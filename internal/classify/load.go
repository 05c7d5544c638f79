package classify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Class     string `yaml:"class" validate:"required"`
	Sector    string `yaml:"sector"`
	Benchmark string `yaml:"benchmark"`
	Name      string `yaml:"name"`
}

type fileDoc struct {
	Instruments map[string]fileEntry `yaml:"instruments" validate:"required,min=1,dive"`
}

// Load reads the classification file at path. An empty path selects the
// built-in universe.
func Load(path string) (*Maps, error) {
	if path == "" {
		m := Default()
		return m, m.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classification file: %w", err)
	}
	m, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse classification file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a classification document and validates its consistency.
func Parse(r io.Reader) (*Maps, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate classification: %w", err)
	}

	classes := make(map[string]AssetClass, len(doc.Instruments))
	sectors := make(map[string]string, len(doc.Instruments))
	benchmarks := make(map[string]string, len(doc.Instruments))
	names := make(map[string]string, len(doc.Instruments))

	for rawTicker, e := range doc.Instruments {
		ticker := strings.TrimSpace(rawTicker)
		if ticker == "" {
			return nil, fmt.Errorf("empty ticker in classification")
		}
		class, err := ParseAssetClass(e.Class)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ticker, err)
		}
		classes[ticker] = class
		if s := strings.TrimSpace(e.Sector); s != "" {
			sectors[ticker] = s
		}
		if b := strings.TrimSpace(e.Benchmark); b != "" {
			benchmarks[ticker] = b
		}
		if n := strings.TrimSpace(e.Name); n != "" {
			names[ticker] = n
		}
	}

	m := NewMaps(classes, sectors, benchmarks, names)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
