package storage

import (
	"sort"
	"time"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------

// SelectStreamingUniverse picks the tokens analysed each cycle from a catalog
// listing: live futures by nearest expiry, plus the lowest-strike calls and
// puts of each underlying's nearest expiry.
func SelectStreamingUniverse(instruments []models.MInstrument, underlyings []string, today time.Time, maxFutures, maxPerSide int) models.MStreamingUniverse {
	day := civilDate(today)
	live := func(i models.MInstrument) bool {
		return i.Expiry != nil && civilDate(*i.Expiry) >= day
	}

	var futures []models.MInstrument
	byUnderlying := make(map[string][]models.MInstrument)
	for _, inst := range instruments {
		if !live(inst) {
			continue
		}
		switch {
		case inst.IsFuture():
			futures = append(futures, inst)
		case inst.IsOption() && inst.Strike != nil:
			byUnderlying[inst.Name] = append(byUnderlying[inst.Name], inst)
		}
	}

	sort.SliceStable(futures, func(i, j int) bool {
		a, b := civilDate(*futures[i].Expiry), civilDate(*futures[j].Expiry)
		if a != b {
			return a < b
		}
		return futures[i].Token < futures[j].Token
	})

	u := models.MStreamingUniverse{
		Futures:   []string{},
		OptionsCE: []string{},
		OptionsPE: []string{},
	}
	for i := 0; i < len(futures) && i < maxFutures; i++ {
		u.Futures = append(u.Futures, futures[i].Token)
	}

	for _, underlying := range underlyings {
		options := byUnderlying[underlying]
		if len(options) == 0 {
			continue
		}

		nearest := civilDate(*options[0].Expiry)
		for _, o := range options[1:] {
			nearest = min(nearest, civilDate(*o.Expiry))
		}

		var calls, puts []models.MInstrument
		for _, o := range options {
			if civilDate(*o.Expiry) != nearest {
				continue
			}
			switch o.OptionType() {
			case models.OptionTypeCall:
				calls = append(calls, o)
			case models.OptionTypePut:
				puts = append(puts, o)
			}
		}
		u.OptionsCE = append(u.OptionsCE, lowestStrikes(calls, maxPerSide)...)
		u.OptionsPE = append(u.OptionsPE, lowestStrikes(puts, maxPerSide)...)
	}
	return u
}

func lowestStrikes(options []models.MInstrument, n int) []string {
	sort.SliceStable(options, func(i, j int) bool {
		if *options[i].Strike != *options[j].Strike {
			return *options[i].Strike < *options[j].Strike
		}
		return options[i].Token < options[j].Token
	})
	out := make([]string, 0, min(n, len(options)))
	for i := 0; i < len(options) && i < n; i++ {
		out = append(out, options[i].Token)
	}
	return out
}

// civilDate turns a timestamp into yyyymmdd in its own location.
func civilDate(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
