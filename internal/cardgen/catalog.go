package cardgen

import (
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// TemplateCount is the number of waveform templates in the catalog.
const TemplateCount = 10

// ResolveTemplate maps a buyer's template selection onto 1..TemplateCount.
// nil, "random", "surprise", "surpriseme", and anything out of range or
// unparseable resolve to a random template; it never fails.
func ResolveTemplate(selection any) int {
	switch v := selection.(type) {
	case nil:
		return RandomTemplate()
	case string:
		return resolveTemplateString(v)
	case json.Number:
		return resolveTemplateString(v.String())
	case int:
		return templateOrRandom(int64(v))
	case int64:
		return templateOrRandom(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return RandomTemplate()
		}
		return templateOrRandom(int64(v))
	default:
		return RandomTemplate()
	}
}

// RandomTemplate picks a uniform template id in 1..TemplateCount.
func RandomTemplate() int {
	n, err := rand.Int(rand.Reader, big.NewInt(TemplateCount))
	if err != nil {
		return 1
	}
	return int(n.Int64()) + 1
}

func resolveTemplateString(raw string) int {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "", "random", "surprise", "surpriseme":
		return RandomTemplate()
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return templateOrRandom(n)
	}
	// JSON numbers like "7.0" still count as integers.
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return templateOrRandom(int64(f))
	}
	return RandomTemplate()
}

func templateOrRandom(n int64) int {
	if n >= 1 && n <= TemplateCount {
		return int(n)
	}
	return RandomTemplate()
}
