package storage

import (
	"fmt"
	"testing"
	"time"

	"oi-signal-engine/src/models"
	"oi-signal-engine/src/testsupport"

	"github.com/stretchr/testify/assert"
)

var (
	ist     = time.FixedZone("IST", 5*3600+1800)
	today   = time.Date(2024, time.January, 3, 11, 0, 0, 0, ist)
	janExp  = time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC)
	febExp  = time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	expired = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	sameDay = time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
)

// catalog lists futures for two underlyings and a NIFTY option chain across
// two expiries, plus contracts that must never be selected.
func catalog() []models.MInstrument {
	insts := []models.MInstrument{
		*testsupport.Future("FUT-B", "BANKNIFTY24FEBFUT", "BANKNIFTY", "NFO", febExp),
		*testsupport.Future("FUT-A", "NIFTY24JANFUT", "NIFTY", "NFO", janExp),
		*testsupport.Future("FUT-0", "NIFTY23DECFUT", "NIFTY", "NFO", expired),
		*testsupport.Future("FUT-T", "CRUDEOIL24JANFUT", "CRUDEOIL", "MCX", sameDay),
		{Token: "FUT-NOEXP", Symbol: "GOLDFUT", Name: "GOLD", Exchange: "MCX", InstrumentType: models.InstrumentFutCom},
	}
	insts[3].InstrumentType = models.InstrumentFutCom

	for i := 6; i >= 0; i-- {
		strike := 21000 + float64(i)*100
		insts = append(insts,
			*testsupport.Option(fmt.Sprintf("CE%d", i), fmt.Sprintf("NIFTY24JAN%.0fCE", strike), "NIFTY", "NFO", strike, janExp),
			*testsupport.Option(fmt.Sprintf("PE%d", i), fmt.Sprintf("NIFTY24JAN%.0fPE", strike), "NIFTY", "NFO", strike, janExp),
		)
	}
	insts = append(insts,
		*testsupport.Option("FAR-CE", "NIFTY24FEB20000CE", "NIFTY", "NFO", 20000, febExp),
		*testsupport.Option("OLD-CE", "NIFTY24JAN1900CE", "NIFTY", "NFO", 19000, expired),
		models.MInstrument{Token: "NOSTRIKE", Symbol: "NIFTY24JANXCE", Name: "NIFTY", Exchange: "NFO", InstrumentType: models.InstrumentOptIdx, Expiry: &janExp},
	)
	return insts
}

func TestSelectStreamingUniverse(t *testing.T) {
	u := SelectStreamingUniverse(catalog(), []string{"NIFTY", "BANKNIFTY"}, today, 50, 5)

	assert.Equal(t, []string{"FUT-T", "FUT-A", "FUT-B"}, u.Futures)
	assert.Equal(t, []string{"CE0", "CE1", "CE2", "CE3", "CE4"}, u.OptionsCE)
	assert.Equal(t, []string{"PE0", "PE1", "PE2", "PE3", "PE4"}, u.OptionsPE)

	assert.Equal(t, "FUT-T", u.Tokens()[0])
	assert.Equal(t, "CE0", u.Tokens()[3])
	assert.Equal(t, "PE4", u.Tokens()[12])
}

func TestSelectStreamingUniverseLimits(t *testing.T) {
	u := SelectStreamingUniverse(catalog(), []string{"NIFTY"}, today, 1, 2)
	assert.Equal(t, []string{"FUT-T"}, u.Futures)
	assert.Equal(t, []string{"CE0", "CE1"}, u.OptionsCE)
	assert.Equal(t, []string{"PE0", "PE1"}, u.OptionsPE)
}

func TestSelectStreamingUniverseNearestExpiryRolls(t *testing.T) {
	after := time.Date(2024, time.January, 26, 10, 0, 0, 0, ist)
	u := SelectStreamingUniverse(catalog(), []string{"NIFTY"}, after, 50, 5)
	assert.Equal(t, []string{"FUT-B"}, u.Futures)
	assert.Equal(t, []string{"FAR-CE"}, u.OptionsCE)
	assert.Empty(t, u.OptionsPE)
}

func TestSelectStreamingUniverseUnknownUnderlying(t *testing.T) {
	u := SelectStreamingUniverse(catalog(), []string{"SENSEX"}, today, 50, 5)
	assert.Empty(t, u.OptionsCE)
	assert.Empty(t, u.OptionsPE)
	assert.NotNil(t, u.OptionsCE)
}
