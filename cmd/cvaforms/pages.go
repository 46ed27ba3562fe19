package main

import (
	"fmt"
	"strings"

	"github.com/jun787/CVA-cupping-forms/internal/filled"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/spf13/cobra"
)

// pagesCmd represents the pages command
var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Show which pages an export would include",
	Long: `Print the pages that hold at least one filled field, with the number of
filled fields on each. These are exactly the pages export writes.`,
	Args: cobra.NoArgs,
	RunE: runPages,
}

func init() {
	rootCmd.AddCommand(pagesCmd)

	pagesCmd.Flags().String("session", "", "ID of the session")
	pagesCmd.Flags().String("values", "", "JSON or YAML values file")
	pagesCmd.MarkFlagsMutuallyExclusive("session", "values")
	pagesCmd.MarkFlagsOneRequired("session", "values")
}

func runPages(cmd *cobra.Command, _ []string) error {
	ff, err := loadFields()
	if err != nil {
		return err
	}

	var values schema.Values
	if id, _ := cmd.Flags().GetString("session"); id != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		sess, err := store.Get(id)
		if err != nil {
			return err
		}
		values = sess.Values
	} else {
		path, _ := cmd.Flags().GetString("values")
		if values, err = loadValuesFile(path); err != nil {
			return err
		}
	}

	pages := filled.Pages(ff.Fields, values)
	if len(pages) == 0 {
		fmt.Println("No filled pages")
		return nil
	}

	counts := filled.Count(ff.Fields, values)
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d (%d)", p, counts[p])
	}
	fmt.Printf("Pages: %s\n", strings.Join(parts, ", "))
	return nil
}
