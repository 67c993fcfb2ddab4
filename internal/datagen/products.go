//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package datagen generates synthetic product-listing datasets in the
// shape the cleaning stage expects: human-readable headers, currency
// symbols and thousands separators in prices, occasional blank cells
// and duplicated rows.
package datagen

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// CSVHeader is the raw dataset header row. The cleaning stage
// normalizes these to snake_case and drops the URL columns.
var CSVHeader = []string{
	"Product Name",
	"Category",
	"Current Discounted Price",
	"Listed Price",
	"Rating",
	"Number of Reviews",
	"Collected At",
	"Product URL",
	"Image URL",
}

var categories = []string{
	"Electronics",
	"Home & Kitchen",
	"Sports & Outdoors",
	"Beauty",
	"Toys & Games",
	"Books",
	"Grocery",
}

// Generator produces synthetic product listings.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a random seed.
func NewGenerator() *Generator {
	return &Generator{faker: gofakeit.New(uint64(time.Now().UnixNano()))}
}

// NewGeneratorWithSeed creates a generator with a specific seed for
// reproducibility.
func NewGeneratorWithSeed(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Listing is one raw product row before cleaning.
type Listing struct {
	ProductName     string
	Category        string
	DiscountedPrice string
	ListedPrice     string
	Rating          string
	NumberOfReviews string
	CollectedAt     string
	ProductURL      string
	ImageURL        string
}

// Listing generates one raw product row. Prices carry a currency
// symbol and thousands separators; roughly one row in twelve has a
// blank rating or review count.
func (g *Generator) Listing() Listing {
	listed := g.faker.Price(5, 2500)
	discounted := listed
	if g.faker.Bool() {
		discounted = listed * (1 - float64(g.faker.IntRange(5, 60))/100)
	}

	rating := fmt.Sprintf("%.1f", g.faker.Float64Range(1.0, 5.0))
	reviews := fmt.Sprintf("%d", g.faker.IntRange(0, 50000))
	if g.faker.IntRange(1, 12) == 1 {
		rating = ""
	}
	if g.faker.IntRange(1, 12) == 1 {
		reviews = ""
	}

	collected := g.faker.DateRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	)

	slug := g.faker.UUID()
	return Listing{
		ProductName:     g.faker.ProductName(),
		Category:        categories[g.faker.IntRange(0, len(categories)-1)],
		DiscountedPrice: formatPrice(discounted),
		ListedPrice:     formatPrice(listed),
		Rating:          rating,
		NumberOfReviews: reviews,
		CollectedAt:     collected.Format("2006-01-02 15:04:05"),
		ProductURL:      "https://example-shop.test/p/" + slug,
		ImageURL:        "https://images.example-shop.test/" + slug + ".jpg",
	}
}

func (l Listing) record() []string {
	return []string{
		l.ProductName,
		l.Category,
		l.DiscountedPrice,
		l.ListedPrice,
		l.Rating,
		l.NumberOfReviews,
		l.CollectedAt,
		l.ProductURL,
		l.ImageURL,
	}
}

// formatPrice renders a price the way scraped listings carry them,
// with a currency symbol and a thousands separator.
func formatPrice(v float64) string {
	whole := int(v)
	cents := int(v*100) % 100
	if whole < 1000 {
		return fmt.Sprintf("$%d.%02d", whole, cents)
	}
	return fmt.Sprintf("$%d,%03d.%02d", whole/1000, whole%1000, cents)
}

// WriteCSV writes a header and rows listings to w. Roughly one row in
// twenty is written twice so the cleaning stage has duplicates to drop.
func (g *Generator) WriteCSV(w io.Writer, rows int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < rows; i++ {
		l := g.Listing()
		if err := cw.Write(l.record()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
		if g.faker.IntRange(1, 20) == 1 {
			if err := cw.Write(l.record()); err != nil {
				return fmt.Errorf("failed to write duplicate row %d: %w", i, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes a generated dataset to path.
func (g *Generator) WriteCSVFile(path string, rows int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	if err := g.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
