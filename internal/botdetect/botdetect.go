// Package botdetect estimates how likely a client is automated traffic.
// The score is a heuristic 0-100, not a certainty: it is the sum of three
// independently computed partial scores (UA string, fingerprint quality, and
// cross-signal consistency), each contributing human-readable reasons.
package botdetect

import (
	"github.com/vigilhq/beacon/internal/fingerprint"
	"github.com/vigilhq/beacon/internal/useragent"
)

// Detection methods reported in Result.Method.
const (
	MethodUAString    = "ua-string"
	MethodFingerprint = "fingerprint"
	MethodCombined    = "combined"
)

// BotThreshold is the score at or above which a client is considered a bot.
const BotThreshold = 50

// Result is the outcome of one bot-likelihood evaluation.
type Result struct {
	IsBot   bool     `json:"isBot"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	Method  string   `json:"detectionMethod"`
}

// desktopBrowsers are the browser families the classifier can positively
// identify; a known family paired with a weak fingerprint is suspicious.
var desktopBrowsers = map[string]bool{
	"Chrome":            true,
	"Firefox":           true,
	"Safari":            true,
	"Edge":              true,
	"Opera":             true,
	"Internet Explorer": true,
}

// Detect scores ua and fp and returns the combined verdict. It is a pure
// function: every input produces a result and the score is clamped to [0,100].
func Detect(ua useragent.Parsed, fp fingerprint.Fingerprint) Result {
	uaScore, uaReasons := scoreUserAgent(ua)
	fpScore, fpReasons := scoreFingerprint(fp)
	combScore, combReasons := scoreCombined(ua, fp)

	score := uaScore + fpScore + combScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	reasons := make([]string, 0, len(uaReasons)+len(fpReasons)+len(combReasons))
	reasons = append(reasons, uaReasons...)
	reasons = append(reasons, fpReasons...)
	reasons = append(reasons, combReasons...)

	method := MethodCombined
	switch {
	case uaScore >= 80:
		method = MethodUAString
	case fpScore >= 40 && uaScore < 20:
		method = MethodFingerprint
	}

	return Result{
		IsBot:   score >= BotThreshold,
		Score:   score,
		Reasons: reasons,
		Method:  method,
	}
}

// scoreUserAgent evaluates the UA string alone. Hard bot signals
// short-circuit; otherwise weaker malformation signals accumulate.
func scoreUserAgent(ua useragent.Parsed) (int, []string) {
	if ua.Device.Type == useragent.DeviceBot {
		return 80, []string{"user agent matches bot pattern"}
	}
	if useragent.CrawlerNames[ua.Browser.Name] {
		return 90, []string{"known crawler: " + ua.Browser.Name}
	}
	if useragent.CLIToolNames[ua.Browser.Name] {
		return 70, []string{"known CLI tool: " + ua.Browser.Name}
	}

	score := 0
	var reasons []string
	if ua.Browser.Name == "Unknown" || ua.Browser.Version == "0.0" {
		score += 30
		reasons = append(reasons, "unknown or malformed browser")
	}
	if ua.OS.Name == "Unknown" {
		score += 10
		reasons = append(reasons, "unknown operating system")
	}
	return score, reasons
}

// scoreFingerprint evaluates fingerprint quality: sparse or implausible
// environments are typical of headless and scripted clients.
func scoreFingerprint(fp fingerprint.Fingerprint) (int, []string) {
	score := 0
	var reasons []string

	switch {
	case fp.Confidence < 30:
		score += 40
		reasons = append(reasons, "very low fingerprint confidence")
	case fp.Confidence < 50:
		score += 20
		reasons = append(reasons, "low fingerprint confidence")
	}
	if fp.Components.Timezone == "" {
		score += 15
		reasons = append(reasons, "missing timezone")
	}
	if fp.Components.Language == "" {
		score += 15
		reasons = append(reasons, "missing language")
	}
	if fp.Components.ScreenWidth == 0 || fp.Components.ScreenHeight == 0 || fp.Components.ColorDepth == 0 {
		score += 25
		reasons = append(reasons, "implausible screen characteristics")
	}
	if !fp.Components.CookieEnabled {
		score += 5
		reasons = append(reasons, "cookies disabled")
	}
	return score, reasons
}

// scoreCombined cross-checks UA claims against the fingerprint.
func scoreCombined(ua useragent.Parsed, fp fingerprint.Fingerprint) (int, []string) {
	score := 0
	var reasons []string

	if desktopBrowsers[ua.Browser.Name] && fp.Confidence < 40 {
		score += 15
		reasons = append(reasons, "known browser with weak fingerprint")
	}
	if ua.Browser.Name == "Unknown" && fp.Confidence > 70 {
		// A rich, consistent environment argues against automation even
		// when the UA string is unrecognized.
		score -= 10
		reasons = append(reasons, "unrecognized browser but strong fingerprint")
	}
	if ua.Device.Type == useragent.DeviceDesktop && fp.Components.Platform == "" {
		score += 10
		reasons = append(reasons, "desktop device with empty platform")
	}
	return score, reasons
}
