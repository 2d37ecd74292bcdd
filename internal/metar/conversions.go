package metar

import (
	"math"
	"strconv"
)

// CompassDirection converts a bearing in degrees to a 16-point compass name.
// Bearings wrap, so 360 is North.
func CompassDirection(degrees int) string {
	index := int(math.Round(float64(degrees)/22.5)) % 16
	if index < 0 {
		index += 16
	}
	point := compassPoints[index]
	if name, ok := compassNames[point]; ok {
		return name
	}
	return point
}

// DescribeVisibility renders a visibility in statute miles
func DescribeVisibility(miles float64) string {
	switch {
	case miles >= 10:
		return "10+ miles"
	case miles >= 1:
		return formatNumber(miles) + " miles"
	default:
		return formatNumber(miles) + " mile"
	}
}

// DescribeSkyCondition returns the text for a sky cover code, or the code
// itself when unknown. Only the first three characters are considered.
func DescribeSkyCondition(condition string) string {
	key := condition
	if len(key) > 3 {
		key = key[:3]
	}
	if name, ok := skyConditionNames[key]; ok {
		return name
	}
	return condition
}

// Fahrenheit converts whole degrees Celsius to the nearest whole degree Fahrenheit.
func Fahrenheit(celsius int) int {
	return int(math.Round(float64(celsius)*9/5 + 32))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
