package metar

import "errors"

// ErrEmptyReport is returned when there is no report text to decode
var ErrEmptyReport = errors.New("No METAR data available")

// Report is the decoded form of a single METAR.
// Optional groups are nil when the report does not carry them.
type Report struct {
	Wind             *Wind        `json:"wind"`
	Visibility       *Visibility  `json:"visibility"`
	Temperature      *Temperature `json:"temperature"`
	Dewpoint         *Temperature `json:"dewpoint"`
	SkyConditions    []SkyLayer   `json:"sky_conditions"`
	WeatherPhenomena []Phenomenon `json:"weather_phenomena"`
	Pressure         *Pressure    `json:"pressure"`
	Time             *string      `json:"time"`
}

// Wind is a decoded wind group (e.g. 25015G25KT)
type Wind struct {
	Description string  `json:"description"`
	Speed       int     `json:"speed"`     // knots
	Direction   *string `json:"direction"` // compass name or "variable"; nil when calm
	Gust        *int    `json:"gust"`      // knots
}

// Visibility is prevailing visibility in statute miles
type Visibility struct {
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// Temperature holds a temperature or dewpoint reading
type Temperature struct {
	Celsius    int `json:"celsius"`
	Fahrenheit int `json:"fahrenheit"`
}

// SkyLayer is one reported cloud layer
type SkyLayer struct {
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Height      *int   `json:"height"` // feet AGL
}

// Phenomenon is a present-weather group such as -RA or +TSRA
type Phenomenon struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Pressure is the altimeter setting
type Pressure struct {
	InchesHg    float64 `json:"inches_hg"`
	Description string  `json:"description"`
}

func newReport() *Report {
	return &Report{
		SkyConditions:    []SkyLayer{},
		WeatherPhenomena: []Phenomenon{},
	}
}
