package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// collectorsCmd represents the collectors command
var collectorsCmd = &cobra.Command{
	Use:   "collectors",
	Short: "Inspect registered data source adapters",
}

var collectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collectors and the companies they apply to",
	RunE:  runCollectorsList,
}

func init() {
	rootCmd.AddCommand(collectorsCmd)
	collectorsCmd.AddCommand(collectorsListCmd)
}

func runCollectorsList(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("=== Registered collectors ===")
	fmt.Println(strings.Repeat("-", 72))
	for _, c := range rt.collectors.ListAll() {
		meta := c.Meta()

		var applicable []string
		for _, company := range rt.companies.ListAll() {
			if c.IsApplicable(company) {
				applicable = append(applicable, company.ID)
			}
		}

		fmt.Printf("%-22s %-12s tier=%-10s source=%s\n",
			meta.SignalType, meta.Category, meta.Tier, meta.Source)
		if len(applicable) == 0 {
			fmt.Println("  applies to: (none)")
		} else {
			fmt.Printf("  applies to: %s\n", strings.Join(applicable, ", "))
		}
	}

	return nil
}
