package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
)

var flagJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract one listing and print the normalized payload",
	Long: `Extract renders the listing page, pulls its fields with the portal's selector
map and prints the normalized payload.

Examples:
  inmo extract https://examplehomes.test/propiedad/123
  inmo extract https://examplehomes.test/propiedad/123 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the payload as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	retry := a.retryConfig()
	var payload *models.ExtractedPayload
	err = retry.Do(cmd.Context(), "extract", func(ctx context.Context) error {
		p, err := a.extractor.Extract(ctx, args[0])
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", scraper.Kind(err), err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	printPayload(os.Stdout, services.NewFormatter("es"), payload)
	return nil
}

// printPayload renders p as a two-column field table.
func printPayload(w io.Writer, f *services.Formatter, p *models.ExtractedPayload) {
	rows := [][]string{
		{"Título", p.Title},
		{"Precio", f.Price(p.Price, p.Currency)},
		{"Dirección", orDash(p.Address)},
	}
	for _, feat := range f.Features(p.Bedrooms, p.Bathrooms, p.Parking, p.BuiltArea, p.LandArea) {
		rows = append(rows, []string{feat.Label, feat.Value})
	}
	rows = append(rows,
		[]string{"Extras", orDash(strings.Join(p.Extras, ", "))},
		[]string{"Imágenes", fmt.Sprintf("%d", len(p.Images))},
	)

	fmt.Fprintln(w)
	printTable(w, []string{"Campo", "Valor"}, rows)
	if desc := strings.TrimSpace(p.Description); desc != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Descripción:")
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintln(w, "    "+line)
		}
	}
	for i, img := range p.Images {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, img)
	}
	fmt.Fprintln(w)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
