package config

import (
	"fmt"
	"os"

	"github.com/Dosada05/bp-tabulation/tabulation"
	"gopkg.in/yaml.v3"
)

// LoadFormat reads a tournament format from a YAML file. Keys left out keep
// their default values.
func LoadFormat(path string) (tabulation.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tabulation.Format{}, fmt.Errorf("failed to read format file %s: %w", path, err)
	}
	return ParseFormat(data)
}

func ParseFormat(data []byte) (tabulation.Format, error) {
	format := tabulation.DefaultFormat()
	if err := yaml.Unmarshal(data, &format); err != nil {
		return tabulation.Format{}, fmt.Errorf("failed to parse format: %w", err)
	}
	if err := format.Validate(); err != nil {
		return tabulation.Format{}, err
	}
	return format, nil
}
