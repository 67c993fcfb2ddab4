//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DB is the query surface both *pgxpool.Pool and *pgx.Conn satisfy.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the fixed analytical query set against the warehouse.
type Queries struct {
	db DB
}

// NewQueries creates a query executor over db.
func NewQueries(db DB) *Queries {
	return &Queries{db: db}
}

// QueryNames lists the fixed queries the CLI can run, with the
// argument each takes.
var QueryNames = []struct {
	Name        string
	Description string
}{
	{"top-reviewed", "top N products by review count"},
	{"category-counts", "listings per category for products matching a name substring"},
	{"rating-histogram", "listing count and percentage share per rating bucket"},
	{"price-by-rating", "average discounted price per rating bucket"},
	{"price-by-discount", "average discounted price by discount flag"},
	{"name-class-split", "average rating and reviews, split by a name-substring match"},
	{"price-extremes", "top 10 and bottom 10 listings by discounted price"},
	{"duplicate-listings", "(name, price) pairs appearing more than once"},
	{"avg-discount-pct", "average percentage discount over positive listed prices"},
	{"monthly-aggregates", "listing counts and averages per crawl month"},
}

// ProductReviews is one row of the top-reviewed query.
type ProductReviews struct {
	ProductName     string
	NumberOfReviews float64
}

// TopByReviews returns the n most reviewed listings.
func (q *Queries) TopByReviews(ctx context.Context, n int) ([]ProductReviews, error) {
	rows, err := q.db.Query(ctx, `
        SELECT product_name, number_of_reviews
        FROM fact_sales
        WHERE number_of_reviews IS NOT NULL
        ORDER BY number_of_reviews DESC
        LIMIT $1
    `, n)
	if err != nil {
		return nil, fmt.Errorf("top-reviewed query failed: %w", err)
	}
	defer rows.Close()

	var out []ProductReviews
	for rows.Next() {
		var r ProductReviews
		if err := rows.Scan(&r.ProductName, &r.NumberOfReviews); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CategoryCount is one row of the category-counts query.
type CategoryCount struct {
	Category string
	Listings int64
}

// CategoryCounts counts dimension products per category, restricted to
// product names containing substr (case-insensitive).
func (q *Queries) CategoryCounts(ctx context.Context, substr string) ([]CategoryCount, error) {
	rows, err := q.db.Query(ctx, `
        SELECT category, COUNT(*) AS listings
        FROM dim_product
        WHERE LOWER(product_name) LIKE '%' || LOWER($1) || '%'
        GROUP BY category
        ORDER BY listings DESC, category
    `, substr)
	if err != nil {
		return nil, fmt.Errorf("category-counts query failed: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var r CategoryCount
		if err := rows.Scan(&r.Category, &r.Listings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RatingBucketShare is one row of the rating-histogram query.
type RatingBucketShare struct {
	Bucket   string
	Listings int64
	Share    float64
}

// RatingHistogram returns listing counts per rating bucket with each
// bucket's percentage share of the total.
func (q *Queries) RatingHistogram(ctx context.Context) ([]RatingBucketShare, error) {
	rows, err := q.db.Query(ctx, `
        SELECT rating_bucket,
               COUNT(*) AS listings,
               ROUND(100.0 * COUNT(*) / SUM(COUNT(*)) OVER (), 2) AS share
        FROM fact_sales
        GROUP BY rating_bucket
        ORDER BY listings DESC, rating_bucket
    `)
	if err != nil {
		return nil, fmt.Errorf("rating-histogram query failed: %w", err)
	}
	defer rows.Close()

	var out []RatingBucketShare
	for rows.Next() {
		var r RatingBucketShare
		if err := rows.Scan(&r.Bucket, &r.Listings, &r.Share); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BucketPrice is one row of the price-by-rating query.
type BucketPrice struct {
	Bucket   string
	AvgPrice float64
}

// AvgPriceByRating returns the average discounted price per rating
// bucket.
func (q *Queries) AvgPriceByRating(ctx context.Context) ([]BucketPrice, error) {
	rows, err := q.db.Query(ctx, `
        SELECT rating_bucket, AVG(current_discounted_price) AS avg_price
        FROM fact_sales
        WHERE current_discounted_price IS NOT NULL
        GROUP BY rating_bucket
        ORDER BY avg_price DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("price-by-rating query failed: %w", err)
	}
	defer rows.Close()

	var out []BucketPrice
	for rows.Next() {
		var r BucketPrice
		if err := rows.Scan(&r.Bucket, &r.AvgPrice); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FlagPrice is one row of the price-by-discount query.
type FlagPrice struct {
	DiscountFlag int
	AvgPrice     float64
}

// AvgPriceByDiscountFlag returns the average discounted price for
// discounted and undiscounted listings.
func (q *Queries) AvgPriceByDiscountFlag(ctx context.Context) ([]FlagPrice, error) {
	rows, err := q.db.Query(ctx, `
        SELECT discount_flag, AVG(current_discounted_price) AS avg_price
        FROM fact_sales
        WHERE current_discounted_price IS NOT NULL
        GROUP BY discount_flag
        ORDER BY discount_flag
    `)
	if err != nil {
		return nil, fmt.Errorf("price-by-discount query failed: %w", err)
	}
	defer rows.Close()

	var out []FlagPrice
	for rows.Next() {
		var r FlagPrice
		if err := rows.Scan(&r.DiscountFlag, &r.AvgPrice); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClassStats is one row of the name-class-split query.
type ClassStats struct {
	Class      string
	AvgRating  float64
	AvgReviews float64
}

// NameClassSplit classifies listings by whether the product name
// contains substr and averages rating and review count per class.
func (q *Queries) NameClassSplit(ctx context.Context, substr string) ([]ClassStats, error) {
	rows, err := q.db.Query(ctx, `
        SELECT CASE WHEN LOWER(product_name) LIKE '%' || LOWER($1) || '%'
                    THEN 'match' ELSE 'other' END AS class,
               AVG(rating) AS avg_rating,
               AVG(number_of_reviews) AS avg_reviews
        FROM fact_sales
        GROUP BY 1
        ORDER BY 1
    `, substr)
	if err != nil {
		return nil, fmt.Errorf("name-class-split query failed: %w", err)
	}
	defer rows.Close()

	var out []ClassStats
	for rows.Next() {
		var r ClassStats
		if err := rows.Scan(&r.Class, &r.AvgRating, &r.AvgReviews); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PricedListing is one row of the price-extremes query.
type PricedListing struct {
	ProductName string
	Price       float64
	Side        string
}

// PriceExtremes returns the 10 most and 10 least expensive listings in
// one combined result. With fewer than 10 listings on either side the
// result is shorter.
func (q *Queries) PriceExtremes(ctx context.Context) ([]PricedListing, error) {
	rows, err := q.db.Query(ctx, `
        (SELECT product_name, current_discounted_price, 'top' AS side
         FROM fact_sales
         WHERE current_discounted_price IS NOT NULL
         ORDER BY current_discounted_price DESC
         LIMIT 10)
        UNION ALL
        (SELECT product_name, current_discounted_price, 'bottom' AS side
         FROM fact_sales
         WHERE current_discounted_price IS NOT NULL
         ORDER BY current_discounted_price ASC
         LIMIT 10)
    `)
	if err != nil {
		return nil, fmt.Errorf("price-extremes query failed: %w", err)
	}
	defer rows.Close()

	var out []PricedListing
	for rows.Next() {
		var r PricedListing
		if err := rows.Scan(&r.ProductName, &r.Price, &r.Side); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DuplicateListing is one row of the duplicate-listings query.
type DuplicateListing struct {
	ProductName string
	Price       float64
	Count       int64
}

// DuplicateListings returns (name, price) pairs appearing more than
// once. A table of unique pairs yields zero rows.
func (q *Queries) DuplicateListings(ctx context.Context) ([]DuplicateListing, error) {
	rows, err := q.db.Query(ctx, `
        SELECT product_name, current_discounted_price, COUNT(*) AS listings
        FROM fact_sales
        GROUP BY product_name, current_discounted_price
        HAVING COUNT(*) > 1
        ORDER BY listings DESC, product_name
    `)
	if err != nil {
		return nil, fmt.Errorf("duplicate-listings query failed: %w", err)
	}
	defer rows.Close()

	var out []DuplicateListing
	for rows.Next() {
		var r DuplicateListing
		if err := rows.Scan(&r.ProductName, &r.Price, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AvgDiscountPercent returns the average percentage discount across
// listings with a positive listed price. Rows with listed_price <= 0
// are excluded by construction.
func (q *Queries) AvgDiscountPercent(ctx context.Context) (float64, error) {
	var pct *float64
	err := q.db.QueryRow(ctx, `
        SELECT AVG(100.0 * discount_amount / listed_price)
        FROM fact_sales
        WHERE listed_price > 0
    `).Scan(&pct)
	if err != nil {
		return 0, fmt.Errorf("avg-discount-pct query failed: %w", err)
	}
	if pct == nil {
		return 0, nil
	}
	return *pct, nil
}

// MonthlyStats is one row of the monthly-aggregates query.
type MonthlyStats struct {
	Year      int
	Month     int
	Listings  int64
	AvgPrice  float64
	AvgRating float64
}

// MonthlyAggregates returns per-month listing counts and averages,
// ordered chronologically.
func (q *Queries) MonthlyAggregates(ctx context.Context) ([]MonthlyStats, error) {
	rows, err := q.db.Query(ctx, `
        SELECT crawl_year, crawl_month,
               COUNT(*) AS listings,
               AVG(current_discounted_price) AS avg_price,
               AVG(rating) AS avg_rating
        FROM fact_sales
        WHERE crawl_year IS NOT NULL AND crawl_month IS NOT NULL
        GROUP BY crawl_year, crawl_month
        ORDER BY crawl_year, crawl_month
    `)
	if err != nil {
		return nil, fmt.Errorf("monthly-aggregates query failed: %w", err)
	}
	defer rows.Close()

	var out []MonthlyStats
	for rows.Next() {
		var r MonthlyStats
		if err := rows.Scan(&r.Year, &r.Month, &r.Listings, &r.AvgPrice, &r.AvgRating); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
