package matching

import (
	"math"
	"time"
)

// The feed's schedule times count seconds from midnight of the trip's
// service day in the operating timezone. The network is single-region, so
// the timezone is a constant rather than configuration.
var operatingLocation = loadOperatingLocation()

func loadOperatingLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Budapest")
	if err != nil {
		// Containers without tzdata still get the right standard offset.
		return time.FixedZone("CET", 3600)
	}
	return loc
}

// SecondsSinceServiceDay returns the number of seconds between midnight of
// the given service date (YYYY-MM-DD, operating timezone) and the given
// instant. A trip whose service day started yesterday contributes a full
// day's offset, which keeps schedule comparisons correct for trips that
// cross midnight. An unparseable service date falls back to seconds since
// the instant's own midnight.
func SecondsSinceServiceDay(serviceDate string, at time.Time) int64 {
	local := at.In(operatingLocation)
	sinceMidnight := int64(local.Hour()*3600 + local.Minute()*60 + local.Second())

	serviceMidnight, err := time.ParseInLocation("2006-01-02", serviceDate, operatingLocation)
	if err != nil {
		return sinceMidnight
	}

	localMidnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, operatingLocation)

	// Rounding absorbs DST transitions, where a calendar day is 23 or 25
	// hours long.
	daysSince := int64(math.Round(localMidnight.Sub(serviceMidnight).Hours() / 24))

	return sinceMidnight + daysSince*86400
}
