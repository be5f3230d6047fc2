package models

// PriceStats summarises the prices seen for one currency.
type PriceStats struct {
	Currency string
	Count    int
	Average  float64
	Min      float64
	Max      float64
}

// BatchReport holds analytics over the results of a batch extraction.
type BatchReport struct {
	Total       int
	Succeeded   int
	Failed      int
	ByHost      map[string]int
	ByErrorKind map[string]int

	// Prices is sorted by Count descending, then by currency.
	Prices []PriceStats

	// MostExpensive is the priciest listing in the most common currency.
	MostExpensive *ExtractionResult

	// FieldCoverage counts, per optional field, the payloads that carried it.
	FieldCoverage map[string]int
}
