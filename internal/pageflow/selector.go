package pageflow

import (
	"context"
	"fmt"
	"math/rand"

	"ecommerce-datagen/internal/catalog"
	"ecommerce-datagen/internal/inventory"
	"ecommerce-datagen/internal/models"
)

// DefaultMaxDraws is how many draws look for a purchasable product before
// the selector settles for any product
const DefaultMaxDraws = 10

// Content is what a page shows. Both fields may be nil.
type Content struct {
	Product  *models.Product
	Category *models.Category
}

// Selector resolves page content against the catalog and the ledger
type Selector struct {
	catalog  *catalog.Catalog
	ledger   inventory.Ledger
	maxDraws int
}

// NewSelector creates a new content selector
func NewSelector(c *catalog.Catalog, ledger inventory.Ledger) *Selector {
	return &Selector{
		catalog:  c,
		ledger:   ledger,
		maxDraws: DefaultMaxDraws,
	}
}

// Select picks the content of a page of the given type. Product pages prefer
// active products with stock but never block: after maxDraws misses any
// product is shown, since viewing reserves nothing.
func (s *Selector) Select(ctx context.Context, rng *rand.Rand, page PageType) (Content, error) {
	switch page {
	case ProductDetail:
		return s.selectProduct(ctx, rng)
	case CategoryListing:
		if len(s.catalog.Categories) == 0 {
			return Content{}, nil
		}
		return Content{Category: &s.catalog.Categories[rng.Intn(len(s.catalog.Categories))]}, nil
	default:
		return Content{}, nil
	}
}

func (s *Selector) selectProduct(ctx context.Context, rng *rand.Rand) (Content, error) {
	products := s.catalog.Products
	if len(products) == 0 {
		return Content{}, nil
	}

	for i := 0; i < s.maxDraws; i++ {
		p := &products[rng.Intn(len(products))]
		snap, found, err := s.ledger.Lookup(ctx, p.ID)
		if err != nil {
			return Content{}, fmt.Errorf("failed to look up product %s: %w", p.ID, err)
		}
		if found && snap.Available() {
			return s.withCategory(p), nil
		}
	}

	return s.withCategory(&products[rng.Intn(len(products))]), nil
}

func (s *Selector) withCategory(p *models.Product) Content {
	c := Content{Product: p}
	if cat, ok := s.catalog.CategoryByID(p.CategoryID); ok {
		c.Category = cat
	}
	return c
}
