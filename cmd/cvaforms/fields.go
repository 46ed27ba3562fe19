package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/spf13/cobra"
)

// fieldsCmd groups the field layout commands
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Inspect and edit the field layout",
}

var fieldsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report problems in the fields file",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ff, err := loadFields()
		if err != nil {
			return err
		}
		problems := ff.Validate()
		for _, p := range problems {
			fmt.Println(p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d problem(s) in %s", len(problems), appConfig.FieldsPath)
		}
		fmt.Printf("%s: %d fields OK\n", appConfig.FieldsPath, len(ff.Fields))
		return nil
	},
}

var fieldsNextIDCmd = &cobra.Command{
	Use:   "next-id",
	Short: "Print the next free field ID for a page and type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, _ := cmd.Flags().GetInt("page")
		if page < 1 {
			return fmt.Errorf("--page must be >= 1")
		}
		rawType, _ := cmd.Flags().GetString("type")
		t, err := schema.ParseFieldType(rawType)
		if err != nil {
			return err
		}

		ff, err := loadFields()
		if err != nil {
			return err
		}
		fmt.Println(schema.NextFieldID(ff.Fields, page, t))
		return nil
	},
}

var fieldsGridCmd = &cobra.Command{
	Use:   "grid BASE_ID",
	Short: "Stamp a checkbox into a rows x cols grid",
	Long: `Clone the checkbox BASE_ID into a grid. The base field is the top-left cell;
every other cell gets a fresh ID and a rect offset by the column and row spacing.
The new fields are printed as JSON, or appended to the fields file with --write.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, _ := cmd.Flags().GetInt("rows")
		cols, _ := cmd.Flags().GetInt("cols")
		dx, _ := cmd.Flags().GetFloat64("dx")
		dy, _ := cmd.Flags().GetFloat64("dy")
		write, _ := cmd.Flags().GetBool("write")

		ff, err := loadFields()
		if err != nil {
			return err
		}
		created, err := schema.ExpandGrid(ff.Fields, schema.GridSpec{
			BaseID:   args[0],
			Rows:     rows,
			Cols:     cols,
			SpacingX: dx,
			SpacingY: dy,
		})
		if err != nil {
			return err
		}

		if !write {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(created)
		}

		ff.Fields = append(ff.Fields, created...)
		if err := ff.Save(appConfig.FieldsPath); err != nil {
			return err
		}
		fmt.Printf("Added %d fields to %s\n", len(created), appConfig.FieldsPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.AddCommand(fieldsValidateCmd, fieldsNextIDCmd, fieldsGridCmd)

	fieldsNextIDCmd.Flags().Int("page", 0, "1-based page number")
	fieldsNextIDCmd.Flags().String("type", "", "field type (text, checkbox, slider)")
	_ = fieldsNextIDCmd.MarkFlagRequired("page")
	_ = fieldsNextIDCmd.MarkFlagRequired("type")

	fieldsGridCmd.Flags().Int("rows", 1, "grid rows")
	fieldsGridCmd.Flags().Int("cols", 1, "grid columns")
	fieldsGridCmd.Flags().Float64("dx", 0, "column spacing in normalized page units")
	fieldsGridCmd.Flags().Float64("dy", 0, "row spacing in normalized page units")
	fieldsGridCmd.Flags().Bool("write", false, "append the new fields to the fields file")
}
