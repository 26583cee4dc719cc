package metrics

import "time"

// Granularity is the time-series bucket unit.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

const isoDate = "2006-01-02"

// SelectGranularity picks the bucket unit for a date range. Span is the
// inclusive day count. The 28-31 day rule fires before the general
// thresholds so a calendar month charts monthly; keep this precedence
// even for ranges the general rules would also catch.
func SelectGranularity(start, end time.Time) Granularity {
	spanDays := int(end.Sub(start).Hours()/24) + 1

	if spanDays >= 28 && spanDays <= 31 {
		return GranularityMonth
	}
	switch {
	case spanDays < 14:
		return GranularityDay
	case spanDays < 60:
		return GranularityWeek
	default:
		return GranularityMonth
	}
}

// BucketStarts generates the complete, gap-free series of bucket start
// dates covering [start, end] at the given granularity. Weekly buckets
// start on Monday and monthly buckets on the first of the month, matching
// the precomputed local_week / local_month columns.
func BucketStarts(start, end time.Time, g Granularity) []time.Time {
	var buckets []time.Time

	cur := truncateToBucket(start, g)
	for !cur.After(end) {
		buckets = append(buckets, cur)
		cur = advanceBucket(cur, g)
	}
	return buckets
}

func truncateToBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeek:
		// back up to Monday
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

func advanceBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// bucketExpr returns the SQL expression yielding a record's bucket start.
// Tables with precomputed local-bucket columns join on them directly;
// tables without them derive the bucket by truncating the raw timestamp.
func bucketExpr(meta TableMeta, g Granularity) string {
	if meta.HasLocalBuckets {
		switch g {
		case GranularityWeek:
			return "local_week"
		case GranularityMonth:
			return "local_month"
		default:
			return "local_day"
		}
	}
	return "DATE_TRUNC('" + string(g) + "', " + meta.DateColumn + ")::date"
}
