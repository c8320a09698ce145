package domain

import "github.com/shopspring/decimal"

// Prices travel as JSON numbers, the way the storefront frontend expects them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}
