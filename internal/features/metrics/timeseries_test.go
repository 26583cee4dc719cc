package metrics

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(isoDate, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestSelectGranularity(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  Granularity
	}{
		{name: "10-day range is daily", start: "2024-03-01", end: "2024-03-10", want: GranularityDay},
		{name: "13-day range is daily", start: "2024-03-01", end: "2024-03-13", want: GranularityDay},
		{name: "14-day range is weekly", start: "2024-03-01", end: "2024-03-14", want: GranularityWeek},
		{name: "20-day range is weekly", start: "2024-03-01", end: "2024-03-20", want: GranularityWeek},
		{name: "90-day range is monthly", start: "2024-01-01", end: "2024-03-30", want: GranularityMonth},
		// the calendar-month special case wins over the weekly rule
		{name: "exactly 28 days is monthly", start: "2024-02-01", end: "2024-02-28", want: GranularityMonth},
		{name: "exactly 30 days is monthly", start: "2024-04-01", end: "2024-04-30", want: GranularityMonth},
		{name: "exactly 31 days is monthly", start: "2024-01-01", end: "2024-01-31", want: GranularityMonth},
		{name: "32 days falls back to weekly", start: "2024-01-01", end: "2024-02-01", want: GranularityWeek},
		{name: "59 days is weekly", start: "2024-01-01", end: "2024-02-28", want: GranularityWeek},
		{name: "60 days is monthly", start: "2024-01-01", end: "2024-02-29", want: GranularityMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectGranularity(mustDate(t, tt.start), mustDate(t, tt.end))
			if got != tt.want {
				t.Errorf("SelectGranularity(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestBucketStartsDaily(t *testing.T) {
	buckets := BucketStarts(mustDate(t, "2024-03-01"), mustDate(t, "2024-03-07"), GranularityDay)
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want 7", len(buckets))
	}
	for i := 1; i < len(buckets); i++ {
		if diff := buckets[i].Sub(buckets[i-1]); diff != 24*time.Hour {
			t.Errorf("gap between bucket %d and %d: %v", i-1, i, diff)
		}
	}
	if buckets[0].Format(isoDate) != "2024-03-01" || buckets[6].Format(isoDate) != "2024-03-07" {
		t.Errorf("bounds = %s..%s", buckets[0].Format(isoDate), buckets[6].Format(isoDate))
	}
}

func TestBucketStartsWeeklyAlignsToMonday(t *testing.T) {
	// 2024-03-06 is a Wednesday; its week starts Monday 2024-03-04
	buckets := BucketStarts(mustDate(t, "2024-03-06"), mustDate(t, "2024-03-25"), GranularityWeek)
	if buckets[0].Format(isoDate) != "2024-03-04" {
		t.Errorf("first bucket = %s, want 2024-03-04", buckets[0].Format(isoDate))
	}
	for i, b := range buckets {
		if b.Weekday() != time.Monday {
			t.Errorf("bucket %d starts on %v, want Monday", i, b.Weekday())
		}
	}
	for i := 1; i < len(buckets); i++ {
		if diff := buckets[i].Sub(buckets[i-1]); diff != 7*24*time.Hour {
			t.Errorf("weekly gap = %v", diff)
		}
	}
}

func TestBucketStartsMonthly(t *testing.T) {
	buckets := BucketStarts(mustDate(t, "2024-01-15"), mustDate(t, "2024-04-10"), GranularityMonth)
	want := []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01"}
	if len(buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(buckets), len(want))
	}
	for i, w := range want {
		if buckets[i].Format(isoDate) != w {
			t.Errorf("bucket %d = %s, want %s", i, buckets[i].Format(isoDate), w)
		}
	}
}

func TestBucketStartsNoDuplicates(t *testing.T) {
	for _, g := range []Granularity{GranularityDay, GranularityWeek, GranularityMonth} {
		buckets := BucketStarts(mustDate(t, "2024-01-01"), mustDate(t, "2024-06-30"), g)
		seen := map[string]bool{}
		for _, b := range buckets {
			key := b.Format(isoDate)
			if seen[key] {
				t.Errorf("%v: duplicate bucket %s", g, key)
			}
			seen[key] = true
		}
	}
}

func TestBucketExpr(t *testing.T) {
	appt, _ := LookupTable(TableAppointments)
	leads, _ := LookupTable(TableLeads)

	tests := []struct {
		name string
		meta TableMeta
		g    Granularity
		want string
	}{
		{name: "precomputed daily", meta: appt, g: GranularityDay, want: "local_day"},
		{name: "precomputed weekly", meta: appt, g: GranularityWeek, want: "local_week"},
		{name: "precomputed monthly", meta: appt, g: GranularityMonth, want: "local_month"},
		{name: "derived daily", meta: leads, g: GranularityDay, want: "DATE_TRUNC('day', created_at::date)::date"},
		{name: "derived monthly", meta: leads, g: GranularityMonth, want: "DATE_TRUNC('month', created_at::date)::date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bucketExpr(tt.meta, tt.g); got != tt.want {
				t.Errorf("bucketExpr = %q, want %q", got, tt.want)
			}
		})
	}
}
