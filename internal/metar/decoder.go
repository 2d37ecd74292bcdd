// Package metar decodes METAR surface weather reports into structured data.
//
// A report is split on whitespace and every token is offered to each group
// classifier in a fixed order. Classifiers match on the start of a token, and
// a token may feed more than one group. Only the observation time claims a
// token exclusively. Unrecognised tokens are ignored.
package metar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	timePattern          = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z`)
	windPattern          = regexp.MustCompile(`^(\d{3}|VRB)(\d{2,3})(?:G(\d{2,3}))?KT`)
	visibilityPattern    = regexp.MustCompile(`^(\d+)SM`)
	fractionalVisPattern = regexp.MustCompile(`^(\d+)/(\d+)SM`)
	temperaturePattern   = regexp.MustCompile(`^(M?)(\d{2})/(M?)(\d{2})`)
	skyPattern           = regexp.MustCompile(`^(CLR|SKC|FEW|SCT|BKN|OVC)(\d{3})?`)
	phenomenonPattern    = regexp.MustCompile(`^[-+]?[A-Z]{2,}`)
	pressurePattern      = regexp.MustCompile(`^A(\d{4})`)
)

// tokens that look like weather groups but are report keywords
var reservedWords = map[string]bool{
	"AUTO": true,
	"COR":  true,
	"RMK":  true,
}

// classifier applies one group's effect to the report and reports whether
// the token should be consumed without trying later classifiers.
type classifier func(token string, report *Report) (exclusive bool)

var classifiers = []classifier{
	classifyTime,
	classifyWind,
	classifyVisibility,
	classifyTemperature,
	classifySky,
	classifyPhenomenon,
	classifyPressure,
}

// Decoder decodes METAR text. It holds no state and is safe for concurrent use.
type Decoder struct{}

// NewDecoder creates a new decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a raw METAR report
func (d *Decoder) Decode(raw string) (*Report, error) {
	return Decode(raw)
}

// Decode decodes a raw METAR report. Empty input yields ErrEmptyReport.
func Decode(raw string) (*Report, error) {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return nil, ErrEmptyReport
	}

	report := newReport()
	for _, token := range tokens {
		for _, classify := range classifiers {
			if classify(token, report) {
				break
			}
		}
	}
	return report, nil
}

// Tokenize splits a report into its whitespace-separated groups
func Tokenize(raw string) []string {
	return strings.Fields(raw)
}

func classifyTime(token string, report *Report) bool {
	m := timePattern.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	observed := fmt.Sprintf("%sth at %s:%s UTC", m[1], m[2], m[3])
	report.Time = &observed
	return true
}

func classifyWind(token string, report *Report) bool {
	m := windPattern.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	speed, err := strconv.Atoi(m[2])
	if err != nil {
		return false
	}

	if speed == 0 {
		report.Wind = &Wind{Description: "Calm", Speed: 0}
		return false
	}

	direction := "variable"
	if m[1] != "VRB" {
		degrees, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		direction = CompassDirection(degrees)
	}

	wind := &Wind{
		Description: "From the " + strings.ToLower(direction),
		Speed:       speed,
		Direction:   &direction,
	}
	if m[3] != "" {
		if gust, err := strconv.Atoi(m[3]); err == nil {
			wind.Gust = &gust
		}
	}
	report.Wind = wind
	return false
}

func classifyVisibility(token string, report *Report) bool {
	var miles float64

	if m := visibilityPattern.FindStringSubmatch(token); m != nil {
		whole, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		miles = float64(whole)
	} else if m := fractionalVisPattern.FindStringSubmatch(token); m != nil {
		num, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		den, err := strconv.Atoi(m[2])
		if err != nil || den == 0 {
			return false
		}
		miles = float64(num) / float64(den)
	} else {
		return false
	}

	report.Visibility = &Visibility{
		Value:       miles,
		Description: DescribeVisibility(miles),
	}
	return false
}

func classifyTemperature(token string, report *Report) bool {
	m := temperaturePattern.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	temp := signedCelsius(m[1], m[2])
	dew := signedCelsius(m[3], m[4])

	report.Temperature = &Temperature{Celsius: temp, Fahrenheit: Fahrenheit(temp)}
	report.Dewpoint = &Temperature{Celsius: dew, Fahrenheit: Fahrenheit(dew)}
	return false
}

// signedCelsius reads a two-digit value where an M prefix means below zero
func signedCelsius(sign, digits string) int {
	// the pattern guarantees two digits
	value, _ := strconv.Atoi(digits)
	if sign == "M" {
		return -value
	}
	return value
}

func classifySky(token string, report *Report) bool {
	m := skyPattern.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	layer := SkyLayer{
		Condition:   m[1],
		Description: DescribeSkyCondition(m[1]),
	}
	if m[2] != "" {
		hundreds, _ := strconv.Atoi(m[2])
		height := hundreds * 100
		layer.Height = &height
	}
	report.SkyConditions = append(report.SkyConditions, layer)
	return false
}

func classifyPhenomenon(token string, report *Report) bool {
	if !phenomenonPattern.MatchString(token) || reservedWords[token] {
		return false
	}
	report.WeatherPhenomena = append(report.WeatherPhenomena, Phenomenon{
		Code:        token,
		Description: DecodePhenomenon(token),
	})
	return false
}

func classifyPressure(token string, report *Report) bool {
	m := pressurePattern.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	hundredths, _ := strconv.Atoi(m[1])
	inches := float64(hundredths) / 100
	report.Pressure = &Pressure{
		InchesHg:    inches,
		Description: fmt.Sprintf("%.2f inches Hg", inches),
	}
	return false
}
