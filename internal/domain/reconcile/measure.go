package reconcile

import "strings"

// Remote measure codes.
const (
	// FallbackMeasureCode is used when a unit string is not recognized
	// ("piece"). Unknown units never fail an upload.
	FallbackMeasureCode = 9

	// DefaultLineMeasureCode is the measure code applied to line items
	// whose product has no measure of its own.
	DefaultLineMeasureCode = 796
)

// measureCodes maps legacy unit strings to remote store measure codes.
var measureCodes = map[string]int{
	"м":     1,
	"л":     3,
	"г":     5,
	"кг":    7,
	"шт":    9,
	"км":    10,
	"м2":    12,
	"м3":    14,
	"т":     16,
	"ч":     18,
	"мес":   20,
	"кор":   22,
	"уп":    24,
	"пара":  26,
	"рул":   28,
	"тыс":   30,
	"бут":   32,
	"усл":   34,
	"квтч":  36,
	"квт·ч": 38,
	"кг(уп)": 40,
}

// MeasureCode resolves a unit string to a remote measure code, falling
// back to FallbackMeasureCode for anything unrecognized.
func MeasureCode(unit string) int {
	if code, ok := measureCodes[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return code
	}
	return FallbackMeasureCode
}
