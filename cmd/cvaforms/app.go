package main

import (
	"context"
	"fmt"

	"github.com/jun787/CVA-cupping-forms/internal/assets"
	"github.com/jun787/CVA-cupping-forms/internal/export"
	"github.com/jun787/CVA-cupping-forms/internal/raster"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/jun787/CVA-cupping-forms/internal/server"
	"github.com/jun787/CVA-cupping-forms/internal/session"
	"github.com/jun787/CVA-cupping-forms/internal/sourcepdf"
)

func loadFields() (*schema.FieldsFile, error) {
	ff, err := schema.Load(appConfig.FieldsPath)
	if err != nil {
		return nil, err
	}
	log.WithFields("path", appConfig.FieldsPath, "fields", len(ff.Fields)).Debug("Loaded fields")
	return ff, nil
}

func openStore() (*session.Store, error) {
	store, err := session.Open(&session.Config{Path: appConfig.SessionsFile, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to open sessions: %w", err)
	}
	return store, nil
}

func newAssets() *assets.Store {
	return assets.New(&assets.Config{Logger: log, Timeout: appConfig.ProbeTimeout})
}

func newExporter(store *assets.Store) (*export.Exporter, error) {
	return export.New(&export.Config{
		Logger:   log,
		Assets:   store,
		Renderer: raster.New(&raster.Config{Logger: log, MaxPixels: appConfig.RasterMaxPixels}),
		Scale:    appConfig.RasterScale,
	})
}

// previewLoader opens the source PDF for the preview endpoint with the interactive pixel budget
func previewLoader(store *assets.Store) server.PageSourceLoader {
	renderer := raster.New(&raster.Config{Logger: log, MaxPixels: raster.PreviewMaxPixels})
	return func(ctx context.Context) (server.PageSource, error) {
		data, err := store.Fetch(ctx, appConfig.PDFPath)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", appConfig.PDFPath, err)
		}
		doc, err := sourcepdf.Open(data, &sourcepdf.Config{Logger: log, Renderer: renderer, Validate: true})
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}
