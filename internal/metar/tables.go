package metar

// compassPoints is the 16-point rose in clockwise order starting at north.
// Each point covers 22.5 degrees.
var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

var compassNames = map[string]string{
	"N":   "North",
	"NNE": "North-northeast",
	"NE":  "Northeast",
	"ENE": "East-northeast",
	"E":   "East",
	"ESE": "East-southeast",
	"SE":  "Southeast",
	"SSE": "South-southeast",
	"S":   "South",
	"SSW": "South-southwest",
	"SW":  "Southwest",
	"WSW": "West-southwest",
	"W":   "West",
	"WNW": "West-northwest",
	"NW":  "Northwest",
	"NNW": "North-northwest",
}

var skyConditionNames = map[string]string{
	"CLR": "Clear skies",      // no clouds below 12,000 ft
	"SKC": "Sky clear",        // no clouds or obscuring phenomena
	"FEW": "Few clouds",       // 1/8 to 2/8
	"SCT": "Scattered clouds", // 3/8 to 4/8
	"BKN": "Broken clouds",    // 5/8 to 7/8
	"OVC": "Overcast",         // 8/8
}

var intensityPrefixes = map[string]string{
	"-": "Light ",
	"+": "Heavy ",
	"":  "",
}

// PhenomenonCategory groups the two-letter present-weather codes
type PhenomenonCategory string

const (
	CategoryDescriptor    PhenomenonCategory = "descriptor"
	CategoryPrecipitation PhenomenonCategory = "precipitation"
	CategoryObscuration   PhenomenonCategory = "obscuration"
)

type phenomenonRule struct {
	category  PhenomenonCategory
	code      string
	expansion string
}

// phenomenonRules is searched in order: descriptors, then precipitation,
// then obscuration.
var phenomenonRules = []phenomenonRule{
	{CategoryDescriptor, "MI", "Shallow "},
	{CategoryDescriptor, "PR", "Partial "},
	{CategoryDescriptor, "BC", "Patches of "},
	{CategoryDescriptor, "DR", "Drifting "},
	{CategoryDescriptor, "BL", "Blowing "},
	{CategoryDescriptor, "SH", "Showers of "},
	{CategoryDescriptor, "TS", "Thunderstorms with "},
	{CategoryDescriptor, "FZ", "Freezing "},

	{CategoryPrecipitation, "DZ", "drizzle"},
	{CategoryPrecipitation, "RA", "rain"},
	{CategoryPrecipitation, "SN", "snow"},
	{CategoryPrecipitation, "SG", "snow grains"},
	{CategoryPrecipitation, "IC", "ice crystals"},
	{CategoryPrecipitation, "PL", "ice pellets"},
	{CategoryPrecipitation, "GR", "hail"},
	{CategoryPrecipitation, "GS", "small hail"},

	{CategoryObscuration, "BR", "mist"},
	{CategoryObscuration, "FG", "fog"},
	{CategoryObscuration, "FU", "smoke"},
	{CategoryObscuration, "VA", "volcanic ash"},
	{CategoryObscuration, "DU", "dust"},
	{CategoryObscuration, "SA", "sand"},
	{CategoryObscuration, "HZ", "haze"},
	{CategoryObscuration, "PY", "spray"},
}
