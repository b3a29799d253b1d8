package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// loadFile decodes a YAML config file over cfg. Keys absent from the file
// keep their current values; unknown keys are rejected.
func loadFile(path string, cfg *RunConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Field: "config", Message: err.Error()}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Field: "config", Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return nil
}
