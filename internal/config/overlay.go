package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type seedsFile struct {
	Seeds []Seed `yaml:"seeds"`
}

// OverlaySeeds merges an optional seeds.yml on top of the config's inline
// seed list, so a long curated company list can live outside config.yml.
func OverlaySeeds(cfg *Config, seedsPath string) error {
	b, err := os.ReadFile(seedsPath)
	if err != nil {
		// a missing seeds file should not kill startup
		return nil
	}

	var sf seedsFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return err
	}
	if len(sf.Seeds) > 0 {
		cfg.Discovery.Seeds = append(cfg.Discovery.Seeds, sf.Seeds...)
	}
	return nil
}
