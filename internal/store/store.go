// Package store loads the shop-to-ledger tax code translation table kept
// next to the configuration.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hhn/ledger-bridge/internal/fileutils"
	"hhn/ledger-bridge/internal/logging"

	"gopkg.in/yaml.v3"
)

// TaxCodeMapping is one entry of the list form of the table.
type TaxCodeMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// taxCodeFile is the list form:
//
//	tax_codes:
//	  - source: Taxable Goods
//	    target: HST ON
type taxCodeFile struct {
	TaxCodes []TaxCodeMapping `yaml:"tax_codes"`
}

// TaxCodeStore reads a tax code table from YAML.
type TaxCodeStore struct {
	File   string
	logger logging.Logger
}

// NewTaxCodeStore creates a store for file.
func NewTaxCodeStore(file string, logger logging.Logger) *TaxCodeStore {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &TaxCodeStore{File: file, logger: logger}
}

// FindConfigFile looks for a regular file named filename in the working directory, ./config and
// ~/.config/ledger-bridge.
func (s *TaxCodeStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if fileutils.FileExists(filename) {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".config", "ledger-bridge", filename))
	}

	for _, location := range locations {
		if fileutils.FileExists(location) {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// Load reads the table. Both the list form and a plain source: target map
// are accepted. Source codes are case-sensitive; the first entry for a
// source wins. An unset file yields an empty table; a configured file that
// cannot be found is an error.
func (s *TaxCodeStore) Load() (map[string]string, error) {
	if s.File == "" {
		return map[string]string{}, nil
	}

	filePath, err := s.FindConfigFile(s.File)
	if err != nil {
		return nil, fmt.Errorf("tax code file not found: %s", s.File)
	}

	data, err := fileutils.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading tax code file: %w", err)
	}

	table, err := parseTaxCodes(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing tax code file %s: %w", filePath, err)
	}

	s.logger.Debug("Loaded tax code table",
		logging.F(logging.FieldInputFile, filePath),
		logging.F(logging.FieldCount, len(table)))
	return table, nil
}

func parseTaxCodes(data []byte) (map[string]string, error) {
	table := make(map[string]string)

	var list taxCodeFile
	if err := yaml.Unmarshal(data, &list); err == nil && len(list.TaxCodes) > 0 {
		for i, m := range list.TaxCodes {
			source, target := strings.TrimSpace(m.Source), strings.TrimSpace(m.Target)
			if source == "" || target == "" {
				return nil, fmt.Errorf("tax_codes[%d] needs both source and target", i)
			}
			if _, exists := table[source]; !exists {
				table[source] = target
			}
		}
		return table, nil
	}

	var plain map[string]string
	if err := yaml.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	for source, target := range plain {
		if strings.TrimSpace(target) == "" {
			return nil, fmt.Errorf("tax code %q has no target", source)
		}
		table[source] = strings.TrimSpace(target)
	}
	return table, nil
}

// Merge returns base overlaid with overrides. Neither input is modified.
func Merge(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
