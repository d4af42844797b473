package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/depsentry/depsentry/internal/registry"
)

func TestClassifyAgeBuckets(testInstance *testing.T) {
	referenceTime := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		elapsed       time.Duration
		expectedLabel string
		expectedStale bool
	}{
		{name: "same_day", elapsed: 6 * time.Hour, expectedLabel: "0 days ago"},
		{name: "under_a_month", elapsed: 29 * 24 * time.Hour, expectedLabel: "29 days ago"},
		{name: "one_month_singular", elapsed: 30 * 24 * time.Hour, expectedLabel: "1 month ago"},
		{name: "several_months", elapsed: 200 * 24 * time.Hour, expectedLabel: "6 months ago"},
		{name: "last_month_bucket", elapsed: 359 * 24 * time.Hour, expectedLabel: "11 months ago"},
		{name: "one_year_singular", elapsed: 360 * 24 * time.Hour, expectedLabel: "1 year ago"},
		{name: "year_and_months", elapsed: 500 * 24 * time.Hour, expectedLabel: "1y 4m ago"},
		{name: "exact_staleness_boundary", elapsed: 730 * 24 * time.Hour, expectedLabel: "2 years ago", expectedStale: false},
		{name: "past_staleness_boundary", elapsed: 730*24*time.Hour + time.Second, expectedLabel: "2 years ago", expectedStale: true},
		{name: "three_years", elapsed: 3 * 360 * 24 * time.Hour, expectedLabel: "3 years ago", expectedStale: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			publishTimestamp := referenceTime.Add(-testCase.elapsed).Format(time.RFC3339)
			ageLabel, isStale := registry.ClassifyAge(publishTimestamp, referenceTime)
			require.Equal(testInstance, testCase.expectedLabel, ageLabel)
			require.Equal(testInstance, testCase.expectedStale, isStale)
		})
	}
}

func TestClassifyAgeUnknownTimestamps(testInstance *testing.T) {
	referenceTime := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	for _, timestampValue := range []string{"", "not-a-timestamp"} {
		ageLabel, isStale := registry.ClassifyAge(timestampValue, referenceTime)
		require.Equal(testInstance, "unknown", ageLabel)
		require.False(testInstance, isStale)
	}
}

func TestClassifyAgeFutureTimestampClampsToZero(testInstance *testing.T) {
	referenceTime := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	publishTimestamp := referenceTime.Add(48 * time.Hour).Format(time.RFC3339)

	ageLabel, isStale := registry.ClassifyAge(publishTimestamp, referenceTime)
	require.Equal(testInstance, "0 days ago", ageLabel)
	require.False(testInstance, isStale)
}
