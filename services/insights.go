package services

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// noCurrency groups prices whose fragment carried no currency code.
const noCurrency = "-"

// InsightService summarises batch extraction runs.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the report for results.
func (s *InsightService) Generate(results []*models.ExtractionResult) *models.BatchReport {
	report := &models.BatchReport{
		ByHost:        make(map[string]int),
		ByErrorKind:   make(map[string]int),
		FieldCoverage: make(map[string]int),
	}
	if len(results) == 0 {
		return report
	}
	report.Total = len(results)

	type acc struct {
		count         int
		total, lo, hi float64
		top           *models.ExtractionResult
	}
	byCurrency := make(map[string]*acc)

	for _, r := range results {
		if u, err := url.Parse(r.URL); err == nil && u.Hostname() != "" {
			report.ByHost[u.Hostname()]++
		}
		if !r.OK() {
			report.Failed++
			report.ByErrorKind[r.ErrorKind]++
			continue
		}
		report.Succeeded++
		countCoverage(report.FieldCoverage, r.Payload)

		p := r.Payload
		if p.Price == nil {
			continue
		}
		cur := noCurrency
		if p.Currency != nil {
			cur = *p.Currency
		}
		a, ok := byCurrency[cur]
		if !ok {
			a = &acc{lo: *p.Price, hi: *p.Price, top: r}
			byCurrency[cur] = a
		}
		a.count++
		a.total += *p.Price
		if *p.Price < a.lo {
			a.lo = *p.Price
		}
		if *p.Price > a.hi {
			a.hi = *p.Price
			a.top = r
		}
	}

	for cur, a := range byCurrency {
		report.Prices = append(report.Prices, models.PriceStats{
			Currency: cur,
			Count:    a.count,
			Average:  round2(a.total / float64(a.count)),
			Min:      round2(a.lo),
			Max:      round2(a.hi),
		})
	}
	sort.Slice(report.Prices, func(i, j int) bool {
		if report.Prices[i].Count != report.Prices[j].Count {
			return report.Prices[i].Count > report.Prices[j].Count
		}
		return report.Prices[i].Currency < report.Prices[j].Currency
	})
	if len(report.Prices) > 0 {
		report.MostExpensive = byCurrency[report.Prices[0].Currency].top
	}

	s.logger.Debug("batch report generated", "total", report.Total, "failed", report.Failed)
	return report
}

func countCoverage(cov map[string]int, p *models.ExtractedPayload) {
	mark := func(field string, present bool) {
		if present {
			cov[field]++
		}
	}
	mark("title", p.Title != models.TitlePlaceholder)
	mark("price", p.Price != nil)
	mark("currency", p.Currency != nil)
	mark("address", p.Address != "")
	mark("bedrooms", p.Bedrooms != nil)
	mark("bathrooms", p.Bathrooms != nil)
	mark("parking", p.Parking != nil)
	mark("builtArea", p.BuiltArea != nil)
	mark("landArea", p.LandArea != nil)
	mark("extras", len(p.Extras) > 0)
	mark("images", len(p.Images) > 0)
}

// Print writes r to w as a coloured terminal report.
func (s *InsightService) Print(w io.Writer, r *models.BatchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  BATCH EXTRACTION REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  URLs processed : \033[1m%d\033[0m\n", r.Total)
	fmt.Fprintf(w, "  Succeeded      : \033[1;32m%d\033[0m\n", r.Succeeded)
	fmt.Fprintf(w, "  Failed         : \033[1;31m%d\033[0m\n", r.Failed)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Prices by Currency\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Prices) == 0 {
		fmt.Fprintf(w, "  No price data available\n")
	}
	for _, ps := range r.Prices {
		fmt.Fprintf(w, "  %-4s n=%-4d avg \033[1;32m%.2f\033[0m  min %.2f  max %.2f\n",
			ps.Currency, ps.Count, ps.Average, ps.Min, ps.Max)
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing (USD)\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Payload.Title, 50))
		fmt.Fprintf(w, "  URL   : %s\n", r.MostExpensive.URL)
		fmt.Fprintf(w, "  Price : \033[1;31m%.2f %s\033[0m\n", *r.MostExpensive.Payload.Price, r.Prices[0].Currency)
		fmt.Fprintln(w)
	}

	printCounts(w, "URLs by Portal", thin, r.ByHost)
	if r.Failed > 0 {
		printCounts(w, "Failures by Kind", thin, r.ByErrorKind)
	}
	if r.Succeeded > 0 {
		printCounts(w, "Field Coverage", thin, r.FieldCoverage)
	}

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title, thin string, counts map[string]int) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)

	type kv struct {
		key   string
		count int
	}
	var rows []kv
	for k, c := range counts {
		rows = append(rows, kv{k, c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	if len(rows) == 0 {
		fmt.Fprintf(w, "  none\n")
	}
	for _, row := range rows {
		bar := strings.Repeat("█", min(row.count, 30))
		fmt.Fprintf(w, "  %s %s (%d)\n", runewidth.FillRight(truncate(row.key, 28), 30), bar, row.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// truncate shortens s to max display columns.
func truncate(s string, max int) string {
	return runewidth.Truncate(s, max, "...")
}
