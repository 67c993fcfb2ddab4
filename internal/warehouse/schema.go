//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package warehouse owns the warehouse schema, the staged bulk load
// from the curated prefix, and the fixed analytical query set.
package warehouse

// Table names, in load order. Dimensions load before the fact table.
const (
	TableDimProduct = "dim_product"
	TableDimDate    = "dim_date"
	TableFactSales  = "fact_sales"
)

// Tables lists the warehouse tables in load order.
var Tables = []string{TableDimProduct, TableDimDate, TableFactSales}

// DDL per table. Dimensions are small and frequently joined, so they
// replicate to every compute node (DISTSTYLE ALL); the fact table is
// distributed by the join key and ordered by crawl date. The declared
// keys are join hints only, Redshift does not enforce them.
var createTableSQL = map[string]string{
	TableDimProduct: `
CREATE TABLE IF NOT EXISTS dim_product (
    product_name VARCHAR(255),
    category     VARCHAR(255),
    PRIMARY KEY(product_name)
)
DISTSTYLE ALL`,

	TableDimDate: `
CREATE TABLE IF NOT EXISTS dim_date (
    crawl_year  INT,
    crawl_month INT,
    PRIMARY KEY(crawl_year, crawl_month)
)
DISTSTYLE ALL`,

	TableFactSales: `
CREATE TABLE IF NOT EXISTS fact_sales (
    product_name             VARCHAR(255),
    current_discounted_price DOUBLE PRECISION,
    listed_price             DOUBLE PRECISION,
    rating                   DOUBLE PRECISION,
    number_of_reviews        DOUBLE PRECISION,
    discount_amount          DOUBLE PRECISION,
    discount_flag            INT,
    rating_bucket            VARCHAR(50),
    crawl_year               INT,
    crawl_month              INT,
    FOREIGN KEY (product_name) REFERENCES dim_product(product_name),
    FOREIGN KEY (crawl_year, crawl_month) REFERENCES dim_date(crawl_year, crawl_month)
)
DISTSTYLE KEY
DISTKEY(product_name)
SORTKEY(crawl_year, crawl_month)`,
}

// stageName returns the staging table a fresh snapshot is copied into
// before the swap.
func stageName(table string) string {
	return "stage_" + table
}

// retiredName returns the transient name the previous snapshot holds
// during the swap batch.
func retiredName(table string) string {
	return table + "_old"
}
