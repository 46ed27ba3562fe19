package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jun787/CVA-cupping-forms/internal/export"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session as a flattened PDF",
	Long: `Export the filled pages of a session as a new PDF.

Only pages with at least one filled field are included, in ascending order.
Each page is the source page rendered to an image with the values drawn on top.
When nothing is filled no file is written.

Examples:
  # Export a stored session to <title>.pdf
  cvaforms export --session 6f1c...

  # Export a values file without a session
  cvaforms export --values answers.json -o answers.pdf`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("session", "", "ID of the session to export")
	exportCmd.Flags().String("values", "", "JSON or YAML file mapping field IDs to values")
	exportCmd.Flags().StringP("output", "o", "", "output PDF (default is the title as a file name)")
	exportCmd.Flags().String("title", "", "document title (default is the session title)")
	exportCmd.Flags().Float64("raster-scale", 0, "pixels per point for page images (default from config)")
	exportCmd.Flags().Duration("timeout", 5*time.Minute, "give up after this long")
	exportCmd.MarkFlagsMutuallyExclusive("session", "values")
	exportCmd.MarkFlagsOneRequired("session", "values")
}

func runExport(cmd *cobra.Command, _ []string) error {
	fields, err := loadFields()
	if err != nil {
		return err
	}

	req := export.Request{
		Fields:   fields.Fields,
		PDFPath:  appConfig.PDFPath,
		FontPath: appConfig.FontPath,
	}

	if id, _ := cmd.Flags().GetString("session"); id != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		sess, err := store.Get(id)
		if err != nil {
			return err
		}
		req.Values = sess.Values
		req.Title = sess.Title
		req.SessionID = sess.ID
	} else {
		path, _ := cmd.Flags().GetString("values")
		req.Values, err = loadValuesFile(path)
		if err != nil {
			return err
		}
		req.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if title, _ := cmd.Flags().GetString("title"); title != "" {
		req.Title = title
	}

	exp, err := newExporter(newAssets())
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	start := time.Now()
	data, err := exp.Export(ctx, req)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		fmt.Println("Nothing to export: no field is filled")
		return nil
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = export.FileName(req.Title)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("Exported %s (%d bytes) in %v\n", out, len(data), time.Since(start).Round(time.Millisecond))
	return nil
}

// loadValuesFile reads a field ID to value map. YAML is used for .yaml/.yml, JSON otherwise.
func loadValuesFile(path string) (schema.Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}

	values := schema.Values{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &values)
	default:
		err = json.Unmarshal(data, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}

	// YAML decodes whole numbers as int; sliders store float64
	for id, v := range values {
		if n, ok := v.(int); ok {
			values[id] = float64(n)
		}
	}
	return values, nil
}
