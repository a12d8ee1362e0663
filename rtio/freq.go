package rtio

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive cycles, rounded to the
// nearest machine unit.
func (f Freq) Period() TimeMu {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}
	return TimeMu(math.Round(float64(Second) / float64(f)))
}

// Cycles converts a duration to the number of cycles passed in it.
func (f Freq) Cycles(d TimeMu) uint64 {
	if d < 0 {
		log.Panic("invalid duration")
	}
	return uint64(math.Round(float64(d) / float64(Second) * float64(f)))
}

// NCyclesLater returns the time after n full cycles.
func (f Freq) NCyclesLater(n int, now TimeMu) TimeMu {
	if n < 0 {
		log.Panic("invalid cycle count")
	}
	return now + TimeMu(n)*f.Period()
}
