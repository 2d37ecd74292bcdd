package metar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePhenomenon(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"RA", "rain"},
		{"-RA", "Light rain"},
		{"+RA", "Heavy rain"},
		{"SN", "snow"},
		{"-SN", "Light snow"},
		{"TSRA", "Thunderstorms with rain"},
		{"+TSRA", "Heavy Thunderstorms with rain"},
		{"FG", "fog"},
		{"BR", "mist"},
		{"HZ", "haze"},
		{"FZFG", "Freezing fog"},
		{"BCFG", "Patches of fog"},
		{"-SHRA", "Light Showers of rain"},
		{"+BLSN", "Heavy Blowing snow"},
		{"FZRAPL", "Freezing rainice pellets"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodePhenomenon(tt.code))
		})
	}
}

func TestDecodePhenomenon_SkipsUnknownSlices(t *testing.T) {
	// VC is not a known code; the scan slides one character and finds SH
	assert.Equal(t, "Showers of ", DecodePhenomenon("VCSH"))
	// K is skipped, then SA matches sand
	assert.Equal(t, "sand", DecodePhenomenon("KSAN"))
}

func TestDecodePhenomenon_EchoesWhenNothingMatches(t *testing.T) {
	assert.Equal(t, "KJFK", DecodePhenomenon("KJFK"))
	assert.Equal(t, "BKN008", DecodePhenomenon("BKN008"))
	assert.Equal(t, "", DecodePhenomenon(""))
}

func TestDecodePhenomenon_IntensityAlone(t *testing.T) {
	// An intensity sign with no recognised code still yields text
	assert.Equal(t, "Light ", DecodePhenomenon("-XX"))
}

func TestPhenomenonCategoryOf(t *testing.T) {
	tests := []struct {
		code     string
		category PhenomenonCategory
	}{
		{"TS", CategoryDescriptor},
		{"FZ", CategoryDescriptor},
		{"RA", CategoryPrecipitation},
		{"GS", CategoryPrecipitation},
		{"FG", CategoryObscuration},
		{"PY", CategoryObscuration},
	}

	for _, tt := range tests {
		category, ok := PhenomenonCategoryOf(tt.code)
		assert.True(t, ok, tt.code)
		assert.Equal(t, tt.category, category, tt.code)
	}

	_, ok := PhenomenonCategoryOf("VC")
	assert.False(t, ok)
}

func TestPhenomenonRules_Ordered(t *testing.T) {
	assert.Len(t, phenomenonRules, 24)

	seen := map[string]bool{}
	last := CategoryDescriptor
	order := map[PhenomenonCategory]int{CategoryDescriptor: 0, CategoryPrecipitation: 1, CategoryObscuration: 2}
	for _, rule := range phenomenonRules {
		assert.False(t, seen[rule.code], "duplicate rule %s", rule.code)
		seen[rule.code] = true
		assert.GreaterOrEqual(t, order[rule.category], order[last], "rule %s out of order", rule.code)
		last = rule.category
	}
}
