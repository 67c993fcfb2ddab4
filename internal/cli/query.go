//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/warehouse"
)

var (
	queryTop   int
	queryMatch string
)

var queryCmd = &cobra.Command{
	Use:   "query [name]",
	Short: "Run one of the fixed analytical queries",
	Long: `Run a fixed analytical query against the loaded warehouse over its
Postgres-compatible endpoint (warehouse.dsn in the config). Without a
name the available queries are listed.

Example:
  dwctl query top-reviewed --top 25
  dwctl query category-counts --match phone`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			cmd.Println("Available queries:")
			cmd.Println()
			for _, q := range warehouse.QueryNames {
				cmd.Printf("  %-20s %s\n", q.Name, q.Description)
			}
			return nil
		}

		if err := cfg.ValidateQuery(); err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := warehouse.Connect(ctx, cfg.Warehouse.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		q := warehouse.NewQueries(pool)
		switch args[0] {
		case "top-reviewed":
			rows, err := q.TopByReviews(ctx, queryTop)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-60s %10.0f\n", r.ProductName, r.NumberOfReviews)
			}

		case "category-counts":
			rows, err := q.CategoryCounts(ctx, queryMatch)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-40s %8d\n", r.Category, r.Listings)
			}

		case "rating-histogram":
			rows, err := q.RatingHistogram(ctx)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-12s %8d %7.2f%%\n", r.Bucket, r.Listings, r.Share)
			}

		case "price-by-rating":
			rows, err := q.AvgPriceByRating(ctx)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-12s %10.2f\n", r.Bucket, r.AvgPrice)
			}

		case "price-by-discount":
			rows, err := q.AvgPriceByDiscountFlag(ctx)
			if err != nil {
				return err
			}
			for _, r := range rows {
				label := "full price"
				if r.DiscountFlag == 1 {
					label = "discounted"
				}
				cmd.Printf("%-12s %10.2f\n", label, r.AvgPrice)
			}

		case "name-class-split":
			rows, err := q.NameClassSplit(ctx, queryMatch)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-8s rating %5.2f  reviews %10.1f\n", r.Class, r.AvgRating, r.AvgReviews)
			}

		case "price-extremes":
			rows, err := q.PriceExtremes(ctx)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-7s %-60s %10.2f\n", r.Side, r.ProductName, r.Price)
			}

		case "duplicate-listings":
			rows, err := q.DuplicateListings(ctx)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%-60s %10.2f x%d\n", r.ProductName, r.Price, r.Count)
			}

		case "avg-discount-pct":
			pct, err := q.AvgDiscountPercent(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("average discount: %.2f%%\n", pct)

		case "monthly-aggregates":
			rows, err := q.MonthlyAggregates(ctx)
			if err != nil {
				return err
			}
			for _, r := range rows {
				cmd.Printf("%d-%02d  listings %8d  avg price %10.2f  avg rating %5.2f\n",
					r.Year, r.Month, r.Listings, r.AvgPrice, r.AvgRating)
			}

		default:
			return fmt.Errorf("unknown query %q; run 'dwctl query' to list them", args[0])
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryTop, "top", 10,
		"row limit for top-reviewed")
	queryCmd.Flags().StringVar(&queryMatch, "match", "",
		"name substring for category-counts and name-class-split")
}
