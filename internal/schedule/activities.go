package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"coffeebreak/internal/grouping"
)

// ActivityFile is the on-disk shape of an activity feed.
//
//	activities:
//	  - id: talk-1
//	    title: Keynote
//	    start: 2024-06-01T09:00:00Z
//	    end: 2024-06-01T10:00:00Z
//	    type: talk
type ActivityFile struct {
	Activities []grouping.Activity `json:"activities" yaml:"activities"`
}

// LoadActivities reads an activity feed from path (JSON, or YAML for
// .yaml/.yml). Unknown keys are rejected. Semantically invalid activities
// are kept; the grouping pass reports them.
func LoadActivities(path string) ([]grouping.Activity, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseActivities(filepath.Base(path), b)
}

func ParseActivities(name string, data []byte) ([]grouping.Activity, error) {
	var f ActivityFile
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".yaml" || ext == ".yml" {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && err != io.EOF {
			return nil, fmt.Errorf("schedule: parse %s: %w", name, err)
		}
		return f.Activities, nil
	}
	if err := decodeInto(data, &f); err != nil {
		return nil, fmt.Errorf("schedule: parse %s: %w", name, err)
	}
	return f.Activities, nil
}

// WritePayload encodes p as indented JSON.
func WritePayload(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
