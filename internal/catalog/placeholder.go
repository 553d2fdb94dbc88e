package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

//go:embed placeholder.yaml
var placeholderYAML []byte

// PlaceholderBills returns the built-in sample bills served as a last resort.
func PlaceholderBills() ([]bill.Bill, error) {
	var doc struct {
		Bills []bill.Bill `yaml:"bills"`
	}
	if err := yaml.Unmarshal(placeholderYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode placeholder bills: %w", err)
	}
	return doc.Bills, nil
}
