// Package fingerprint derives a stable, privacy-preserving visitor
// pseudo-identifier from client environment attributes. The hash rotates once
// per calendar day via a daily salt, but is deterministic within a day.
package fingerprint

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vigilhq/beacon/internal/event"
)

// FNV-1a 32-bit parameters.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

const dayMillis = 86_400_000

// Fingerprint is the generated identifier plus the inputs it came from.
type Fingerprint struct {
	Hash       string                      `json:"hash"`
	Components event.FingerprintComponents `json:"components"`
	Confidence int                         `json:"confidence"`
}

// commonResolutions are screen sizes too widespread to add uniqueness.
var commonResolutions = map[string]bool{
	"1920x1080": true,
	"1366x768":  true,
	"1536x864":  true,
	"1440x900":  true,
	"1280x720":  true,
}

// Generate builds a Fingerprint from components using the current wall clock
// for the daily salt.
func Generate(c event.FingerprintComponents) Fingerprint {
	return GenerateAt(c, time.Now().UnixMilli())
}

// GenerateAt is Generate with an explicit clock, for deterministic tests.
func GenerateAt(c event.FingerprintComponents, nowMillis int64) Fingerprint {
	return Fingerprint{
		Hash:       hashComponents(c, nowMillis),
		Components: c,
		Confidence: confidence(c),
	}
}

// hashComponents serializes the components deterministically, hashes them
// with FNV-1a, and appends a second digest derived from the day number so the
// identifier rotates daily.
func hashComponents(c event.FingerprintComponents, nowMillis int64) string {
	parts := []string{
		fmt.Sprintf("%dx%dx%d", c.ScreenWidth, c.ScreenHeight, c.ColorDepth),
		c.Timezone,
		c.Language,
		c.Platform,
		strconv.FormatBool(c.CookieEnabled),
		strconv.FormatBool(c.DoNotTrack),
	}
	base := fnv1a(strings.Join(parts, "|"))

	day := uint32(nowMillis / dayMillis)
	salt := (fnvOffsetBasis ^ day) * fnvPrime

	return fmt.Sprintf("%08x%08x", base, salt)
}

func fnv1a(s string) uint32 {
	h := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// confidence scores how identifying the component set is, as a weighted
// completeness/uniqueness ratio scaled to 0-100. The maximum is variable:
// rarer values (uncommon resolutions, uncommon color depths) raise the
// achievable bonus alongside the earned score.
func confidence(c event.FingerprintComponents) int {
	score, maxScore := 0, 0

	maxScore += 20
	if c.ScreenWidth > 0 && c.ScreenHeight > 0 {
		score += 20
		res := fmt.Sprintf("%dx%d", c.ScreenWidth, c.ScreenHeight)
		maxScore += 5
		if !commonResolutions[res] {
			score += 5
		}
	}

	maxScore += 20
	if c.Timezone != "" {
		score += 20
	}

	maxScore += 15
	if c.Language != "" {
		score += 15
	}

	maxScore += 15
	if c.Platform != "" {
		score += 15
	}

	// The cookie flag is always known, so it always contributes.
	score += 10
	maxScore += 10

	// Enabled DNT is the rarer state and adds less certainty.
	maxScore += 10
	if c.DoNotTrack {
		score += 5
	} else {
		score += 10
	}

	// Uncommon color depths are more identifying than the ubiquitous 24/32.
	maxScore += 15
	if c.ColorDepth == 24 || c.ColorDepth == 32 {
		score += 10
	} else if c.ColorDepth > 0 {
		score += 15
	}

	pct := int(math.Round(float64(score) / float64(maxScore) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
