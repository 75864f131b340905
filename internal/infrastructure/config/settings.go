package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// Settings is the optional YAML file holding the currency table and chart overrides.
//
//	base_currency: USD
//	rates:
//	  EUR: "0.92"
//	  PKR: "280"
//	chart:
//	  raw_materials:
//	    codes: ["1201"]
//	    name_contains: Raw Materials
type Settings struct {
	BaseCurrency string            `yaml:"base_currency"`
	Rates        map[string]string `yaml:"rates"`
	Chart        usecase.Chart     `yaml:"chart"`
}

// LoadSettings reads the settings file at path. An empty path yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if _, err := s.ParseRates(); err != nil {
		return nil, err
	}

	return &s, nil
}

// ParseRates returns the rate table keyed by upper-case currency code. Every rate must
// be a positive decimal.
func (s *Settings) ParseRates() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(s.Rates))
	for code, raw := range s.Rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate for %s: must be positive", code)
		}
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}

// Converter builds the currency converter. The file's base currency wins over base.
func (s *Settings) Converter(base string) (*domain.CurrencyConverter, error) {
	rates, err := s.ParseRates()
	if err != nil {
		return nil, err
	}
	if s.BaseCurrency != "" {
		base = s.BaseCurrency
	}
	return domain.NewCurrencyConverter(base, rates), nil
}

// ResolvedChart returns the default chart keys with the file's overrides applied.
func (s *Settings) ResolvedChart() usecase.Chart {
	return usecase.DefaultChart().Merge(s.Chart)
}
