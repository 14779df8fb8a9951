// Package catalogfile reads pump catalogs from YAML documents.
package catalogfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/pumpmatch/internal/domain/pump"
)

// ErrDuplicateID is returned when two catalog entries share an id.
var ErrDuplicateID = errors.New("duplicate pump id")

// Catalog is the document shape:
//
//	pumps:
//	  - id: cp-25
//	    rated_flow: 25
//	    rated_head: 32
type Catalog struct {
	Pumps []pump.Spec `yaml:"pumps"`
}

// Load reads and validates the catalog at path.
func Load(path string) ([]pump.Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	specs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return specs, nil
}

// Decode parses a catalog document. Unknown keys are rejected so typos in
// field names do not silently drop data. An empty document is an empty catalog.
func Decode(r io.Reader) ([]pump.Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Pumps))
	for i := range c.Pumps {
		s := &c.Pumps[i]
		if s.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", pump.ErrInvalidPump, i)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return c.Pumps, nil
}

// Find returns the entry with id.
func Find(specs []pump.Spec, id string) (pump.Spec, bool) {
	for i := range specs {
		if specs[i].ID == id {
			return specs[i], true
		}
	}
	return pump.Spec{}, false
}
