package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Caller errors. All are detected before any aggregation runs.
var (
	ErrInvalidDimension   = errors.New("dimension must be one of: category, country, payment_method")
	ErrInvalidGranularity = errors.New("granularity must be 'daily' or 'weekly'")
	ErrInvalidPage        = errors.New("invalid pagination")
)

// Pagination bounds.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500

	DefaultTrendLimit = 90
	MaxTrendLimit     = 366
)

// PageParams is a validated limit/offset window over a ranked result set.
type PageParams struct {
	Limit  int
	Offset int
}

// DefaultPage returns the standard listing window.
func DefaultPage() PageParams {
	return PageParams{Limit: DefaultPageLimit}
}

func (p PageParams) validate(maxLimit int) error {
	if p.Limit < 1 || p.Limit > maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPage, maxLimit)
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0", ErrInvalidPage)
	}
	return nil
}

// ValidatePage checks a window against a maximum limit. Exposed for the
// detectors that rank their own result sets.
func ValidatePage(p PageParams, maxLimit int) error {
	return p.validate(maxLimit)
}

// Page applies an already-validated window to a sorted slice.
func Page[T any](items []T, p PageParams) []T {
	return paginate(items, p)
}

// paginate applies the window to an already-sorted slice.
func paginate[T any](items []T, p PageParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// Dimension is the closed set of segment grouping dimensions.
type Dimension int

const (
	DimensionCountry Dimension = iota
	DimensionCategory
	DimensionPaymentMethod
)

// ParseDimension rejects unknown wire-level dimension strings at the
// boundary; past this point dimension handling is exhaustive.
func ParseDimension(s string) (Dimension, error) {
	switch s {
	case "country":
		return DimensionCountry, nil
	case "category":
		return DimensionCategory, nil
	case "payment_method":
		return DimensionPaymentMethod, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrInvalidDimension, s)
	}
}

// String returns the wire name of the dimension.
func (d Dimension) String() string {
	switch d {
	case DimensionCountry:
		return "country"
	case DimensionCategory:
		return "category"
	case DimensionPaymentMethod:
		return "payment_method"
	}
	return "unknown"
}

// segmentKey selects the transaction field this dimension groups by.
func (d Dimension) segmentKey(tx *domain.Transaction) string {
	switch d {
	case DimensionCountry:
		return tx.Country
	case DimensionCategory:
		return tx.ProductCategory
	case DimensionPaymentMethod:
		return tx.PaymentMethod
	}
	return ""
}

// Granularity is the closed set of trend bucket sizes.
type Granularity int

const (
	GranularityDaily Granularity = iota
	GranularityWeekly
)

// ParseGranularity rejects unknown wire-level granularity strings.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "daily":
		return GranularityDaily, nil
	case "weekly":
		return GranularityWeekly, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrInvalidGranularity, s)
	}
}

// round4 rounds ratios to 4 decimal places.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// round2 rounds percentages and amounts to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
