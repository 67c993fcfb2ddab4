//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

//go:build integration

package warehouse

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/testutil"
)

// Portable DDL for the integration fixtures. The production DDL carries
// Redshift distribution clauses a plain PostgreSQL test endpoint
// rejects, so the tests create the same columns without them.
const testFactDDL = `
CREATE TABLE fact_sales (
    product_name             VARCHAR(255),
    current_discounted_price DOUBLE PRECISION,
    listed_price             DOUBLE PRECISION,
    rating                   DOUBLE PRECISION,
    number_of_reviews        DOUBLE PRECISION,
    discount_amount          DOUBLE PRECISION,
    discount_flag            INT,
    rating_bucket            VARCHAR(50),
    crawl_year               INT,
    crawl_month              INT
)`

const testDimProductDDL = `
CREATE TABLE dim_product (
    product_name VARCHAR(255),
    category     VARCHAR(255)
)`

type factRow struct {
	name     string
	price    float64
	listed   float64
	rating   float64
	reviews  float64
	discount float64
	flag     int
	bucket   string
	year     int
	month    int
}

func setupQueryDB(t *testing.T, rows []factRow) *pgxpool.Pool {
	t.Helper()
	base := testutil.SkipIfNoWarehouse(t)
	connStr := testutil.CreateTestDB(t, base, "queries")
	t.Cleanup(func() {
		testutil.DropTestDB(t, base, testutil.GetDBNameFromConnStr(connStr))
	})

	pool := testutil.ConnectTestDB(t, connStr)
	t.Cleanup(pool.Close)

	ctx := context.Background()
	for _, ddl := range []string{testFactDDL, testDimProductDDL} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			t.Fatalf("Failed to create fixture table: %v", err)
		}
	}
	for _, r := range rows {
		_, err := pool.Exec(ctx, `
            INSERT INTO fact_sales VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        `, r.name, r.price, r.listed, r.rating, r.reviews, r.discount, r.flag, r.bucket, r.year, r.month)
		if err != nil {
			t.Fatalf("Failed to insert fixture row: %v", err)
		}
		_, err = pool.Exec(ctx, `INSERT INTO dim_product VALUES ($1, $2)`, r.name, "electronics")
		if err != nil {
			t.Fatalf("Failed to insert dimension row: %v", err)
		}
	}
	return pool
}

// distinctFixture returns n rows with strictly distinct prices spread
// across two rating buckets and two crawl months.
func distinctFixture(n int) []factRow {
	rows := make([]factRow, 0, n)
	for i := 0; i < n; i++ {
		price := 10.0 + float64(i)*7.5
		bucket := "good"
		if i%2 == 0 {
			bucket = "excellent"
		}
		rows = append(rows, factRow{
			name:     fmt.Sprintf("widget-%02d", i),
			price:    price,
			listed:   price + 5,
			rating:   3.0 + float64(i%3),
			reviews:  float64(100 + i*13),
			discount: 5,
			flag:     1,
			bucket:   bucket,
			year:     2025,
			month:    1 + i%2,
		})
	}
	return rows
}

func TestRatingHistogramSharesSumToHundred(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(30))
	q := NewQueries(pool)

	hist, err := q.RatingHistogram(context.Background())
	if err != nil {
		t.Fatalf("RatingHistogram failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(hist))
	}
	var total float64
	for _, b := range hist {
		total += b.Share
	}
	if math.Abs(total-100.0) > 0.05 {
		t.Errorf("bucket shares sum to %.4f, want 100", total)
	}
}

func TestPriceExtremesDisjointOnDistinctPrices(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(25))
	q := NewQueries(pool)

	extremes, err := q.PriceExtremes(context.Background())
	if err != nil {
		t.Fatalf("PriceExtremes failed: %v", err)
	}
	if len(extremes) != 20 {
		t.Fatalf("expected exactly 20 rows with 25 distinct prices, got %d", len(extremes))
	}
	seen := map[string]string{}
	for _, e := range extremes {
		if side, dup := seen[e.ProductName]; dup {
			t.Errorf("listing %s appears on both %s and %s", e.ProductName, side, e.Side)
		}
		seen[e.ProductName] = e.Side
	}
}

func TestPriceExtremesShortTable(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(4))
	q := NewQueries(pool)

	extremes, err := q.PriceExtremes(context.Background())
	if err != nil {
		t.Fatalf("PriceExtremes failed: %v", err)
	}
	// Both sides return all four rows when the table is smaller than
	// the limit.
	if len(extremes) != 8 {
		t.Fatalf("expected 8 rows on a 4-row table, got %d", len(extremes))
	}
}

func TestDuplicateListingsOnUniqueData(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(12))
	q := NewQueries(pool)

	dups, err := q.DuplicateListings(context.Background())
	if err != nil {
		t.Fatalf("DuplicateListings failed: %v", err)
	}
	if len(dups) != 0 {
		t.Errorf("unique data must yield no duplicates, got %v", dups)
	}
}

func TestDuplicateListingsCountsRepeats(t *testing.T) {
	rows := distinctFixture(5)
	rows = append(rows, rows[0], rows[0]) // same name and price, three total
	pool := setupQueryDB(t, rows)
	q := NewQueries(pool)

	dups, err := q.DuplicateListings(context.Background())
	if err != nil {
		t.Fatalf("DuplicateListings failed: %v", err)
	}
	if len(dups) != 1 {
		t.Fatalf("expected one duplicated pair, got %d", len(dups))
	}
	if dups[0].ProductName != rows[0].name || dups[0].Count != 3 {
		t.Errorf("expected %s x3, got %s x%d", rows[0].name, dups[0].ProductName, dups[0].Count)
	}
}

func TestAvgDiscountPercentExcludesNonPositiveListed(t *testing.T) {
	rows := []factRow{
		{name: "a", price: 90, listed: 100, discount: 10, flag: 1, bucket: "good", rating: 4, reviews: 1, year: 2025, month: 1},
		{name: "b", price: 40, listed: 50, discount: 10, flag: 1, bucket: "good", rating: 4, reviews: 1, year: 2025, month: 1},
		// Excluded: zero listed price would divide by zero.
		{name: "c", price: 5, listed: 0, discount: 5, flag: 1, bucket: "good", rating: 4, reviews: 1, year: 2025, month: 1},
	}
	pool := setupQueryDB(t, rows)
	q := NewQueries(pool)

	pct, err := q.AvgDiscountPercent(context.Background())
	if err != nil {
		t.Fatalf("AvgDiscountPercent failed: %v", err)
	}
	// (10% + 20%) / 2
	if math.Abs(pct-15.0) > 0.001 {
		t.Errorf("expected 15%%, got %.4f", pct)
	}
}

func TestAvgPriceByDiscountFlagPartitions(t *testing.T) {
	rows := []factRow{
		{name: "full", price: 100, listed: 100, discount: 0, flag: 0, bucket: "good", rating: 4, reviews: 1, year: 2025, month: 1},
		{name: "deal", price: 45, listed: 50, discount: 5, flag: 1, bucket: "good", rating: 4, reviews: 1, year: 2025, month: 1},
	}
	pool := setupQueryDB(t, rows)
	q := NewQueries(pool)

	byFlag, err := q.AvgPriceByDiscountFlag(context.Background())
	if err != nil {
		t.Fatalf("AvgPriceByDiscountFlag failed: %v", err)
	}
	if len(byFlag) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(byFlag))
	}
	want := map[int]float64{0: 100, 1: 45}
	for _, p := range byFlag {
		if math.Abs(p.AvgPrice-want[p.DiscountFlag]) > 0.001 {
			t.Errorf("flag %d: expected %.2f, got %.2f", p.DiscountFlag, want[p.DiscountFlag], p.AvgPrice)
		}
	}
}

func TestTopByReviewsOrderAndLimit(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(15))
	q := NewQueries(pool)

	top, err := q.TopByReviews(context.Background(), 5)
	if err != nil {
		t.Fatalf("TopByReviews failed: %v", err)
	}
	if len(top) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].NumberOfReviews > top[i-1].NumberOfReviews {
			t.Errorf("rows not in descending review order at %d", i)
		}
	}
}

func TestMonthlyAggregatesChronological(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(20))
	q := NewQueries(pool)

	months, err := q.MonthlyAggregates(context.Background())
	if err != nil {
		t.Fatalf("MonthlyAggregates failed: %v", err)
	}
	if len(months) != 2 {
		t.Fatalf("expected 2 crawl months, got %d", len(months))
	}
	var total int64
	for i, m := range months {
		total += m.Listings
		if i > 0 {
			prev := months[i-1]
			if m.Year < prev.Year || (m.Year == prev.Year && m.Month <= prev.Month) {
				t.Errorf("months out of order at %d: %d-%d after %d-%d", i, m.Year, m.Month, prev.Year, prev.Month)
			}
		}
	}
	if total != 20 {
		t.Errorf("monthly listing counts sum to %d, want 20", total)
	}
}

func TestCategoryCountsFiltersBySubstring(t *testing.T) {
	pool := setupQueryDB(t, distinctFixture(10))
	q := NewQueries(pool)

	counts, err := q.CategoryCounts(context.Background(), "WIDGET")
	if err != nil {
		t.Fatalf("CategoryCounts failed: %v", err)
	}
	if len(counts) != 1 || counts[0].Listings != 10 {
		t.Fatalf("expected one category with 10 listings, got %v", counts)
	}

	none, err := q.CategoryCounts(context.Background(), "no-such-product")
	if err != nil {
		t.Fatalf("CategoryCounts failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %v", none)
	}
}

func TestNameClassSplitMatchesAreCaseInsensitive(t *testing.T) {
	rows := []factRow{
		{name: "Pro Widget", price: 10, listed: 10, rating: 5, reviews: 200, flag: 0, bucket: "good", year: 2025, month: 1},
		{name: "basic gadget", price: 10, listed: 10, rating: 3, reviews: 50, flag: 0, bucket: "good", year: 2025, month: 1},
	}
	pool := setupQueryDB(t, rows)
	q := NewQueries(pool)

	split, err := q.NameClassSplit(context.Background(), "widget")
	if err != nil {
		t.Fatalf("NameClassSplit failed: %v", err)
	}
	if len(split) != 2 {
		t.Fatalf("expected match and other classes, got %v", split)
	}
	for _, c := range split {
		switch c.Class {
		case "match":
			if math.Abs(c.AvgRating-5) > 0.001 {
				t.Errorf("match class rating: got %.2f, want 5", c.AvgRating)
			}
		case "other":
			if math.Abs(c.AvgRating-3) > 0.001 {
				t.Errorf("other class rating: got %.2f, want 3", c.AvgRating)
			}
		default:
			t.Errorf("unexpected class %q", c.Class)
		}
	}
}
