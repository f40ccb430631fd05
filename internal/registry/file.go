package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileContract struct {
	ChainID uint64 `yaml:"chain_id"`
	Address string `yaml:"address"`
}

type fileAsset struct {
	Asset     `yaml:",inline"`
	Contracts []fileContract `yaml:"contracts"`
}

type fileBurnSource struct {
	Name      string         `yaml:"name"`
	Contracts []fileContract `yaml:"contracts"`
}

type registryFile struct {
	Assets      []fileAsset      `yaml:"assets"`
	BurnSources []fileBurnSource `yaml:"burn_sources"`
}

// LoadFile adds the assets and burn sources described in a YAML file to r.
// Entries for an already registered (chain, address) replace it.
func LoadFile(path string, r *Registry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry file: %w", err)
	}
	return Load(raw, r)
}

func Load(raw []byte, r *Registry) error {
	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("failed to parse registry file: %w", err)
	}

	for _, a := range f.Assets {
		if len(a.Contracts) == 0 {
			return fmt.Errorf("asset %s has no contracts", a.Key)
		}
		for _, c := range a.Contracts {
			if err := r.Register(c.ChainID, c.Address, a.Asset); err != nil {
				return fmt.Errorf("asset %s: %w", a.Key, err)
			}
		}
	}
	for _, s := range f.BurnSources {
		for _, c := range s.Contracts {
			if err := r.RegisterBurnSource(c.ChainID, c.Address, s.Name); err != nil {
				return fmt.Errorf("burn source %s: %w", s.Name, err)
			}
		}
	}
	return nil
}
