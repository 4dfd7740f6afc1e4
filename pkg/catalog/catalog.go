// Package catalog loads the initial set of tracked products from YAML.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

// Entry is one product as written in a seed file or the main config.
// TargetPrice stays a string so values like "$130.00" are accepted and
// never pass through a float.
type Entry struct {
	ID          string `yaml:"id" mapstructure:"id"`
	Name        string `yaml:"name" mapstructure:"name"`
	URL         string `yaml:"url" mapstructure:"url"`
	TargetPrice string `yaml:"target_price" mapstructure:"target_price"`
}

// File is the layout of a product seed file.
type File struct {
	Products []Entry `yaml:"products"`
}

// Product validates the entry and converts it to a TrackedProduct.
func (e Entry) Product() (model.TrackedProduct, error) {
	if e.ID == "" {
		return model.TrackedProduct{}, fmt.Errorf("product entry missing id")
	}
	if e.URL == "" {
		return model.TrackedProduct{}, fmt.Errorf("product %q: missing url", e.ID)
	}
	target, err := model.ParsePrice(e.TargetPrice)
	if err != nil {
		return model.TrackedProduct{}, fmt.Errorf("product %q: target_price: %w", e.ID, err)
	}
	name := e.Name
	if name == "" {
		name = e.ID
	}
	return model.TrackedProduct{
		ID:          e.ID,
		Name:        name,
		URL:         e.URL,
		TargetPrice: target,
	}, nil
}

// Products converts entries in order, rejecting duplicate ids.
func Products(entries []Entry) ([]model.TrackedProduct, error) {
	seen := make(map[string]bool, len(entries))
	products := make([]model.TrackedProduct, 0, len(entries))
	for _, e := range entries {
		p, err := e.Product()
		if err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		seen[p.ID] = true
		products = append(products, p)
	}
	return products, nil
}

// Load reads a YAML seed file and returns its products.
func Load(path string) ([]model.TrackedProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file %s: %w", path, err)
	}

	products, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("products file %s: %w", path, err)
	}
	return products, nil
}

// LoadFromBytes parses YAML seed data from raw bytes.
func LoadFromBytes(data []byte) ([]model.TrackedProduct, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse products: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("no products defined")
	}
	return Products(f.Products)
}
