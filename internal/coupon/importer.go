package coupon

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Importer loads coupon definition files and upserts them into the coupon store.
type Importer struct {
	loader Loader
	writer Writer
	logger zerolog.Logger
}

// NewImporter creates a new coupon importer.
func NewImporter(loader Loader, writer Writer, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		writer: writer,
		logger: logger.With().Str("component", "coupon-importer").Logger(),
	}
}

// Import loads every file concurrently and writes the merged definitions.
// When a code appears in several files the later file wins.
func (i *Importer) Import(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	i.logger.Info().Int("file_count", len(paths)).Msg("importing coupon definitions")

	type loadResult struct {
		index   int
		coupons []model.Coupon
		err     error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			coupons, err := i.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, coupons: coupons, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	// Collect results in order
	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := make(map[string]int)
	var definitions []model.Coupon
	for idx, result := range results {
		if result.err != nil {
			i.logger.Error().Err(result.err).Str("file", paths[idx]).Msg("failed to load coupon file")
			return 0, fmt.Errorf("failed to load coupon file %s: %w", paths[idx], result.err)
		}
		for _, c := range result.coupons {
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			if pos, ok := merged[c.Code]; ok {
				definitions[pos] = c
				continue
			}
			merged[c.Code] = len(definitions)
			definitions = append(definitions, c)
		}
	}

	if len(definitions) == 0 {
		i.logger.Warn().Msg("no coupon definitions found")
		return 0, nil
	}

	written, err := i.writer.UpsertCoupons(ctx, definitions)
	if err != nil {
		i.logger.Error().Err(err).Msg("failed to store coupon definitions")
		return 0, fmt.Errorf("failed to store coupon definitions: %w", err)
	}

	i.logger.Info().Int("coupons_imported", written).Msg("coupon definitions imported")

	return written, nil
}
