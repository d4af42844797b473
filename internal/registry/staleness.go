package registry

import (
	"fmt"
	"time"
)

const (
	dayDuration            = 24 * time.Hour
	daysPerMonthConstant   = 30
	monthsPerYearConstant  = 12
	yearCutoffDaysConstant = daysPerMonthConstant * monthsPerYearConstant
	stalenessThreshold     = 730 * dayDuration

	unknownAgeLabelConstant      = "unknown"
	daysAgoTemplateConstant      = "%d days ago"
	monthAgoSingularConstant     = "1 month ago"
	monthsAgoTemplateConstant    = "%d months ago"
	yearAgoSingularConstant      = "1 year ago"
	yearsAgoTemplateConstant     = "%d years ago"
	yearsMonthsTemplateConstant  = "%dy %dm ago"
	timestampParseLayoutConstant = time.RFC3339
)

// ClassifyAge converts a publish timestamp into a human-readable age label and
// a staleness flag relative to the supplied reference time.
//
// Buckets: under 30 days renders days, under twelve 30-day months renders
// months, and anything older renders years (with a remainder-month suffix when
// the elapsed time does not land on a year boundary). A package is stale when
// strictly more than 730 days have elapsed. An empty or unparsable timestamp
// yields the "unknown" label and is never considered stale because no basis
// for comparison exists.
func ClassifyAge(publishTimestamp string, referenceTime time.Time) (string, bool) {
	if len(publishTimestamp) == 0 {
		return unknownAgeLabelConstant, false
	}

	publishTime, parseError := time.Parse(timestampParseLayoutConstant, publishTimestamp)
	if parseError != nil {
		return unknownAgeLabelConstant, false
	}

	elapsed := referenceTime.Sub(publishTime)
	if elapsed < 0 {
		elapsed = 0
	}

	isStale := elapsed > stalenessThreshold

	elapsedDays := int(elapsed / dayDuration)
	if elapsedDays < daysPerMonthConstant {
		return fmt.Sprintf(daysAgoTemplateConstant, elapsedDays), isStale
	}

	elapsedMonths := elapsedDays / daysPerMonthConstant
	if elapsedDays < yearCutoffDaysConstant {
		if elapsedMonths == 1 {
			return monthAgoSingularConstant, isStale
		}
		return fmt.Sprintf(monthsAgoTemplateConstant, elapsedMonths), isStale
	}

	elapsedYears := elapsedMonths / monthsPerYearConstant
	remainderMonths := elapsedMonths % monthsPerYearConstant
	if remainderMonths == 0 {
		if elapsedYears == 1 {
			return yearAgoSingularConstant, isStale
		}
		return fmt.Sprintf(yearsAgoTemplateConstant, elapsedYears), isStale
	}

	return fmt.Sprintf(yearsMonthsTemplateConstant, elapsedYears, remainderMonths), isStale
}
