package fingerprint

import (
	"regexp"
	"testing"

	"github.com/vigilhq/beacon/internal/event"
)

var fullComponents = event.FingerprintComponents{
	ScreenWidth:   1920,
	ScreenHeight:  1080,
	ColorDepth:    24,
	Timezone:      "Europe/Berlin",
	Language:      "de-DE",
	Platform:      "Win32",
	CookieEnabled: true,
	DoNotTrack:    false,
}

const (
	midnight = int64(1_700_006_400_000) // some instant well inside a day
	nextDay  = midnight + 86_400_000
)

func TestHashStableWithinDay(t *testing.T) {
	a := GenerateAt(fullComponents, midnight)
	b := GenerateAt(fullComponents, midnight+3_600_000)
	if a.Hash != b.Hash {
		t.Fatalf("hash changed within the same day: %s vs %s", a.Hash, b.Hash)
	}
}

func TestHashRotatesDaily(t *testing.T) {
	a := GenerateAt(fullComponents, midnight)
	b := GenerateAt(fullComponents, nextDay)
	if a.Hash == b.Hash {
		t.Fatalf("hash did not rotate across days: %s", a.Hash)
	}
}

func TestHashDependsOnComponents(t *testing.T) {
	other := fullComponents
	other.Language = "en-US"
	a := GenerateAt(fullComponents, midnight)
	b := GenerateAt(other, midnight)
	if a.Hash == b.Hash {
		t.Fatalf("different components produced identical hash %s", a.Hash)
	}
}

func TestHashFormat(t *testing.T) {
	fp := GenerateAt(fullComponents, midnight)
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(fp.Hash) {
		t.Fatalf("hash %q is not 16 lowercase hex digits", fp.Hash)
	}
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		name       string
		components event.FingerprintComponents
		want       int
	}{
		{
			// 100 earned out of a 110 max: common resolution and common
			// color depth leave bonus points on the table.
			name:       "full common environment",
			components: fullComponents,
			want:       91,
		},
		{
			name: "full uncommon environment",
			components: event.FingerprintComponents{
				ScreenWidth: 2560, ScreenHeight: 1440, ColorDepth: 30,
				Timezone: "Pacific/Auckland", Language: "mi-NZ", Platform: "MacIntel",
				CookieEnabled: true, DoNotTrack: false,
			},
			want: 100,
		},
		{
			// Only the always-known cookie flag and DNT contribute.
			name:       "empty environment",
			components: event.FingerprintComponents{},
			want:       19,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateAt(tc.components, midnight).Confidence
			if got != tc.want {
				t.Errorf("confidence = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestConfidenceBounds(t *testing.T) {
	variants := []event.FingerprintComponents{
		{},
		fullComponents,
		{DoNotTrack: true},
		{ScreenWidth: 800, ScreenHeight: 600, ColorDepth: 16},
	}
	for _, c := range variants {
		fp := GenerateAt(c, midnight)
		if fp.Confidence < 0 || fp.Confidence > 100 {
			t.Errorf("confidence %d out of [0,100] for %+v", fp.Confidence, c)
		}
	}
}
