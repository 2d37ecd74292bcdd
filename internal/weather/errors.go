package weather

import (
	"strings"
)

const (
	msgMissingAirportCode = "Please enter an airport code"
	msgAirportCodeLength  = "Airport code must be 4 characters (e.g., KTIG)"
	msgNoMETARFound       = "No METAR data found for this airport code"
	msgFetchFailedPrefix  = "Error fetching METAR data: "
)

// ValidationError reports unusable user input. The message is shown to users as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FetchError reports a failure to obtain a report from the upstream service.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(cause error) *FetchError {
	return &FetchError{Message: msgFetchFailedPrefix + cause.Error(), Err: cause}
}

// NormalizeAirportCode trims and upper-cases a code and checks its length
func NormalizeAirportCode(input string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(input))
	if code == "" {
		return "", &ValidationError{Message: msgMissingAirportCode}
	}
	// length is counted in characters, not bytes
	if len([]rune(code)) != 4 {
		return "", &ValidationError{Message: msgAirportCodeLength}
	}
	return code, nil
}
