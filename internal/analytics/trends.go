package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Trends buckets chargebacks into calendar periods, counting disputes and
// summing disputed amount per bucket. Only observed periods appear; buckets
// with zero chargebacks are never emitted. Ordered by period ascending,
// with limit/offset applied over the bucket sequence.
func (e *Engine) Trends(snap *domain.Snapshot, g Granularity, page PageParams) ([]domain.TrendPoint, error) {
	if err := page.validate(MaxTrendLimit); err != nil {
		return nil, err
	}

	buckets := make(map[string]*domain.TrendPoint)
	for _, cb := range snap.Chargebacks {
		period := bucketKey(cb.ChargebackDate, g)
		b, ok := buckets[period]
		if !ok {
			b = &domain.TrendPoint{Period: period}
			buckets[period] = b
		}
		b.ChargebackCount++
		b.TotalAmount += cb.Amount
	}

	rows := make([]domain.TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, *b)
	}

	// Both period formats sort chronologically as strings.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Period < rows[j].Period
	})

	return paginate(rows, page), nil
}

func bucketKey(t time.Time, g Granularity) string {
	if g == GranularityWeekly {
		return fmt.Sprintf("%d-W%02d", t.Year(), weekOfYear(t))
	}
	return t.Format("2006-01-02")
}

// weekOfYear returns the Monday-start, zero-based week number: days before
// the year's first Monday fall in week 00. This deliberately follows the
// strftime %W convention rather than ISO-8601, which would shift bucket
// boundaries near year transitions.
func weekOfYear(t time.Time) int {
	yday := t.YearDay() - 1                  // 0-based day of year
	wday := (int(t.Weekday()) + 6) % 7       // Monday = 0
	return (yday + 7 - wday) / 7
}
