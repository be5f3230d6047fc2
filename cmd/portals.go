package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
)

var portalsCmd = &cobra.Command{
	Use:   "portals",
	Short: "List supported portals and their selector maps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		maps, err := scraper.LoadSelectorMaps(cfg.SelectorsDir)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(maps))
		for _, sm := range maps {
			rows = append(rows, []string{sm.Host, sm.Version, string(sm.Render), fmt.Sprint(len(sm.Fields)), sm.Source})
		}
		fmt.Fprintln(os.Stdout)
		printTable(os.Stdout, []string{"Host", "Version", "Render", "Fields", "Source"}, rows)
		fmt.Fprintln(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portalsCmd)
}
