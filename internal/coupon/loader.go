package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped coupon definition files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based coupon loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

// Load reads a gzipped coupon file.
// The file is expected to contain one JSON coupon definition per line.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]model.Coupon, error) {
	l.logger.Info().Str("file", filePath).Msg("loading coupon file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open coupon file")
		return nil, fmt.Errorf("failed to open coupon file %s: %w", filePath, err)
	}
	defer file.Close()

	coupons, err := decodeDefinitions(ctx, file, filePath, l.logger)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("coupons_loaded", len(coupons)).
		Msg("coupon file loaded successfully")

	return coupons, nil
}

// decodeDefinitions reads gzipped JSON lines from r. Malformed lines are skipped.
func decodeDefinitions(ctx context.Context, r io.Reader, source string, logger zerolog.Logger) ([]model.Coupon, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		logger.Error().Err(err).Str("source", source).Msg("failed to create gzip reader")
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var coupons []model.Coupon
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			select {
			case <-ctx.Done():
				logger.Warn().Str("source", source).Msg("coupon loading cancelled")
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var c model.Coupon
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			logger.Warn().Err(err).Str("source", source).Int("line", lineNo).Msg("skipping malformed coupon definition")
			continue
		}
		if err := validateDefinition(&c); err != nil {
			logger.Warn().Err(err).Str("source", source).Int("line", lineNo).Msg("skipping invalid coupon definition")
			continue
		}
		coupons = append(coupons, c)
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Str("source", source).Msg("error reading coupon file")
		return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
	}

	return coupons, nil
}

// validateDefinition normalises the code and checks the numeric constraints.
func validateDefinition(c *model.Coupon) error {
	c.Code = NormalizeCode(c.Code)
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if !c.DiscountType.Valid() {
		return fmt.Errorf("coupon %s: unknown discount type %q", c.Code, c.DiscountType)
	}
	if !c.Value.IsPositive() {
		return fmt.Errorf("coupon %s: value must be greater than zero", c.Code)
	}
	if c.DiscountType == model.DiscountPercentage && c.Value.GreaterThan(hundred) {
		return fmt.Errorf("coupon %s: percentage cannot exceed 100", c.Code)
	}
	if c.MinOrderAmount != nil && c.MinOrderAmount.IsNegative() {
		return fmt.Errorf("coupon %s: minimum order amount cannot be negative", c.Code)
	}
	if c.MaxDiscountAmount != nil && c.MaxDiscountAmount.IsNegative() {
		return fmt.Errorf("coupon %s: maximum discount cannot be negative", c.Code)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return fmt.Errorf("coupon %s: usage limit cannot be negative", c.Code)
	}
	if !c.StartsAt.IsZero() && !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(c.StartsAt) {
		return fmt.Errorf("coupon %s: expiry must be after start", c.Code)
	}
	return nil
}
