package metar

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clearMETAR       = "METAR KJFK 161251Z 28008KT 10SM CLR 22/13 A3012 RMK AO2"
	stormyMETAR      = "METAR KLAX 161253Z 25015G25KT 3SM +TSRA BKN008 OVC015 18/16 A2995"
	calmMETAR        = "METAR KTIG 161255Z 00000KT 10SM CLR 25/10 A3020"
	variableMETAR    = "METAR KORD 161252Z VRB05KT 10SM FEW250 20/15 A3015"
	freezingMETAR    = "METAR CYUL 161200Z 32010KT 10SM CLR M05/M12 A3025"
	halfMileFogMETAR = "METAR KBOS 161254Z 09008KT 1/2SM FG OVC002 15/15 A2990"
)

func phenomenaText(report *Report) string {
	parts := make([]string, 0, len(report.WeatherPhenomena))
	for _, p := range report.WeatherPhenomena {
		parts = append(parts, p.Description)
	}
	return strings.Join(parts, " ")
}

func TestDecode_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		report, err := Decode(raw)
		require.ErrorIs(t, err, ErrEmptyReport)
		assert.Nil(t, report)
	}
	assert.Equal(t, "No METAR data available", ErrEmptyReport.Error())
}

func TestDecode_ClearConditions(t *testing.T) {
	report, err := Decode(clearMETAR)
	require.NoError(t, err)

	require.NotNil(t, report.Wind)
	assert.Equal(t, 8, report.Wind.Speed)
	require.NotNil(t, report.Wind.Direction)
	assert.Equal(t, "West", *report.Wind.Direction)
	assert.Equal(t, "From the west", report.Wind.Description)
	assert.Nil(t, report.Wind.Gust)

	require.NotNil(t, report.Visibility)
	assert.Equal(t, 10.0, report.Visibility.Value)
	assert.Equal(t, "10+ miles", report.Visibility.Description)

	require.NotNil(t, report.Temperature)
	assert.Equal(t, Temperature{Celsius: 22, Fahrenheit: 72}, *report.Temperature)
	require.NotNil(t, report.Dewpoint)
	assert.Equal(t, Temperature{Celsius: 13, Fahrenheit: 55}, *report.Dewpoint)

	require.Len(t, report.SkyConditions, 1)
	assert.Equal(t, "CLR", report.SkyConditions[0].Condition)
	assert.Equal(t, "Clear skies", report.SkyConditions[0].Description)
	assert.Nil(t, report.SkyConditions[0].Height)

	require.NotNil(t, report.Pressure)
	assert.Equal(t, 30.12, report.Pressure.InchesHg)
	assert.Equal(t, "30.12 inches Hg", report.Pressure.Description)

	require.NotNil(t, report.Time)
	assert.Equal(t, "16th at 12:51 UTC", *report.Time)
}

func TestDecode_StormyConditions(t *testing.T) {
	report, err := Decode(stormyMETAR)
	require.NoError(t, err)

	require.NotNil(t, report.Wind)
	assert.Equal(t, 15, report.Wind.Speed)
	require.NotNil(t, report.Wind.Gust)
	assert.Equal(t, 25, *report.Wind.Gust)
	assert.Equal(t, "West-southwest", *report.Wind.Direction)

	assert.Equal(t, 3.0, report.Visibility.Value)
	assert.Equal(t, "3 miles", report.Visibility.Description)

	require.Len(t, report.SkyConditions, 2)
	assert.Equal(t, "BKN", report.SkyConditions[0].Condition)
	require.NotNil(t, report.SkyConditions[0].Height)
	assert.Equal(t, 800, *report.SkyConditions[0].Height)
	assert.Equal(t, "OVC", report.SkyConditions[1].Condition)
	require.NotNil(t, report.SkyConditions[1].Height)
	assert.Equal(t, 1500, *report.SkyConditions[1].Height)

	text := phenomenaText(report)
	assert.Contains(t, text, "Heavy")
	assert.Contains(t, text, "Thunderstorms")
	assert.Contains(t, report.WeatherPhenomena, Phenomenon{Code: "+TSRA", Description: "Heavy Thunderstorms with rain"})

	assert.Equal(t, 29.95, report.Pressure.InchesHg)
	assert.Equal(t, Temperature{Celsius: 18, Fahrenheit: 64}, *report.Temperature)
}

func TestDecode_CalmWind(t *testing.T) {
	report, err := Decode(calmMETAR)
	require.NoError(t, err)

	require.NotNil(t, report.Wind)
	assert.Equal(t, "Calm", report.Wind.Description)
	assert.Equal(t, 0, report.Wind.Speed)
	assert.Nil(t, report.Wind.Direction)
	assert.Nil(t, report.Wind.Gust)
}

func TestDecode_CalmIgnoresDirectionAndGust(t *testing.T) {
	report, err := Decode("27000G15KT")
	require.NoError(t, err)

	require.NotNil(t, report.Wind)
	assert.Equal(t, Wind{Description: "Calm"}, *report.Wind)
}

func TestDecode_ThreeDigitWindSpeed(t *testing.T) {
	report, err := Decode("270105G120KT")
	require.NoError(t, err)

	require.NotNil(t, report.Wind)
	assert.Equal(t, 105, report.Wind.Speed)
	require.NotNil(t, report.Wind.Gust)
	assert.Equal(t, 120, *report.Wind.Gust)
	assert.Equal(t, "From the west", report.Wind.Description)
}

func TestDecode_PressureKeepsTwoDecimals(t *testing.T) {
	report, err := Decode("A3000")
	require.NoError(t, err)

	require.NotNil(t, report.Pressure)
	assert.Equal(t, 30.0, report.Pressure.InchesHg)
	assert.Equal(t, "30.00 inches Hg", report.Pressure.Description)
}

func TestDecode_VariableWind(t *testing.T) {
	report, err := Decode(variableMETAR)
	require.NoError(t, err)

	require.NotNil(t, report.Wind)
	assert.Equal(t, 5, report.Wind.Speed)
	assert.Equal(t, "From the variable", report.Wind.Description)
	require.NotNil(t, report.Wind.Direction)
	assert.Equal(t, "variable", *report.Wind.Direction)

	require.Len(t, report.SkyConditions, 1)
	assert.Equal(t, "FEW", report.SkyConditions[0].Condition)
	assert.Equal(t, 25000, *report.SkyConditions[0].Height)
}

func TestDecode_NegativeTemperatures(t *testing.T) {
	report, err := Decode(freezingMETAR)
	require.NoError(t, err)

	assert.Equal(t, Temperature{Celsius: -5, Fahrenheit: 23}, *report.Temperature)
	assert.Equal(t, Temperature{Celsius: -12, Fahrenheit: 10}, *report.Dewpoint)
}

func TestDecode_FractionalVisibility(t *testing.T) {
	report, err := Decode(halfMileFogMETAR)
	require.NoError(t, err)

	assert.Equal(t, 0.5, report.Visibility.Value)
	assert.Equal(t, "0.5 mile", report.Visibility.Description)
	assert.Contains(t, report.WeatherPhenomena, Phenomenon{Code: "FG", Description: "fog"})

	report, err = Decode("METAR KORD 161254Z 09008KT 1/4SM FG OVC002 15/15 A2990")
	require.NoError(t, err)
	assert.Equal(t, 0.25, report.Visibility.Value)
	assert.Equal(t, "0.25 mile", report.Visibility.Description)
}

func TestDecode_ZeroDenominatorIsIgnored(t *testing.T) {
	report, err := Decode("1/0SM")
	require.NoError(t, err)
	assert.Nil(t, report.Visibility)
}

func TestDecode_EchoesUnrecognisedLetterGroups(t *testing.T) {
	report, err := Decode(clearMETAR)
	require.NoError(t, err)

	codes := make([]string, 0, len(report.WeatherPhenomena))
	for _, p := range report.WeatherPhenomena {
		codes = append(codes, p.Code)
		assert.Equal(t, p.Code, p.Description)
	}
	assert.Equal(t, []string{"METAR", "KJFK", "CLR", "AO2"}, codes)
}

func TestDecode_ReservedWordsAreNotPhenomena(t *testing.T) {
	report, err := Decode("AUTO COR RMK")
	require.NoError(t, err)
	assert.Empty(t, report.WeatherPhenomena)
}

func TestDecode_LastScalarWins(t *testing.T) {
	report, err := Decode("10SM 3SM A2992 A3001 20/10 M01/M03")
	require.NoError(t, err)

	assert.Equal(t, 3.0, report.Visibility.Value)
	assert.Equal(t, 30.01, report.Pressure.InchesHg)
	assert.Equal(t, -1, report.Temperature.Celsius)
	assert.Equal(t, -3, report.Dewpoint.Celsius)
}

func TestDecode_ObservationTime(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"161251Z", "16th at 12:51 UTC"},
		{"010000Z", "01th at 00:00 UTC"},
		{"221530Z", "22th at 15:30 UTC"},
		{"311159Z", "31th at 11:59 UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			report, err := Decode(tt.token)
			require.NoError(t, err)
			require.NotNil(t, report.Time)
			assert.Equal(t, tt.expected, *report.Time)
			assert.Empty(t, report.WeatherPhenomena)
		})
	}
}

func TestDecode_TokenFeedsSeveralGroups(t *testing.T) {
	report, err := Decode("OVC010")
	require.NoError(t, err)

	require.Len(t, report.SkyConditions, 1)
	assert.Equal(t, 1000, *report.SkyConditions[0].Height)
	require.Len(t, report.WeatherPhenomena, 1)
	assert.Equal(t, "OVC010", report.WeatherPhenomena[0].Description)
}

func TestDecode_JSONShape(t *testing.T) {
	report, err := Decode(calmMETAR)
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	wind := decoded["wind"].(map[string]any)
	assert.Nil(t, wind["direction"])
	assert.Nil(t, wind["gust"])
	assert.Contains(t, decoded, "sky_conditions")
	assert.Contains(t, decoded, "weather_phenomena")
	assert.Equal(t, "16th at 12:55 UTC", decoded["time"])

	empty, err := Decode("NOTHING")
	require.NoError(t, err)
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sky_conditions":[]`)
	assert.Contains(t, string(data), `"wind":null`)
}

func TestDecoder_ConcurrentUse(t *testing.T) {
	decoder := NewDecoder()
	inputs := []string{clearMETAR, stormyMETAR, calmMETAR, variableMETAR, freezingMETAR, halfMileFogMETAR}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			report, err := decoder.Decode(raw)
			assert.NoError(t, err)
			assert.NotNil(t, report.Wind)
		}(inputs[i%len(inputs)])
	}
	wg.Wait()
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"KJFK", "161251Z", "28008KT"}, Tokenize("  KJFK\t161251Z \n 28008KT "))
	assert.Empty(t, Tokenize(""))
}
