// Package catalog provides the read-only product catalog: categories holding
// purchasable items, loaded from a JSON or YAML file.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid marks catalog data that fails validation at load time.
var ErrInvalid = errors.New("catalog: invalid data")

// Product is an immutable snapshot of a purchasable item. Price is in minor
// currency units (kopecks).
type Product struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Price       int64  `json:"price" yaml:"price"`
}

// Category groups products under a display name.
type Category struct {
	Name  string    `json:"category" yaml:"category"`
	Items []Product `json:"items" yaml:"items"`
}

// Catalog is the ordered list of categories. Identity of a product is the
// pair (category index, item index).
type Catalog struct {
	Categories []Category
}

// Provider returns the current catalog.
type Provider interface {
	Catalog(ctx context.Context) (Catalog, error)
}

// Category returns the category at index i.
func (c Catalog) Category(i int) (Category, bool) {
	if i < 0 || i >= len(c.Categories) {
		return Category{}, false
	}
	return c.Categories[i], true
}

// Item returns the product at index j.
func (c Category) Item(j int) (Product, bool) {
	if j < 0 || j >= len(c.Items) {
		return Product{}, false
	}
	return c.Items[j], true
}

// Validate checks that every category is named and every product has a name
// and a positive price.
func (c Catalog) Validate() error {
	var errs []error
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			errs = append(errs, fmt.Errorf("category %d: empty name", i))
		}
		for j, p := range cat.Items {
			if strings.TrimSpace(p.Name) == "" {
				errs = append(errs, fmt.Errorf("category %d item %d: empty name", i, j))
			}
			if p.Price <= 0 {
				errs = append(errs, fmt.Errorf("category %d item %d (%s): price must be positive, got %d", i, j, p.Name, p.Price))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Static serves a fixed catalog; used by tests and for embedding a catalog in code.
type Static Catalog

// Catalog implements Provider.
func (s Static) Catalog(context.Context) (Catalog, error) {
	return Catalog(s), nil
}
