// Package useragent classifies raw User-Agent header strings into a
// structured browser/OS/device descriptor. Parsing is a pure function of the
// input string: the same header always yields the same result, and every
// input produces a result (unrecognized fields fall back to "Unknown").
package useragent

import (
	"regexp"
	"strings"
)

// Device types produced by classification.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// Browser identifies the browser family, its version, and rendering engine.
type Browser struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Engine  string `json:"engine"`
}

// OS identifies the operating system family and version.
type OS struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Device identifies the device class plus vendor/model where derivable.
type Device struct {
	Type   string `json:"type"`
	Vendor string `json:"vendor,omitempty"`
	Model  string `json:"model,omitempty"`
}

// Parsed is the full classification of one User-Agent string.
type Parsed struct {
	Browser Browser `json:"browser"`
	OS      OS      `json:"os"`
	Device  Device  `json:"device"`
	Raw     string  `json:"raw"`
}

// botPattern matches a named crawler, social-preview bot, or CLI tool.
type botPattern struct {
	token string
	name  string
	cli   bool
}

// Checked in order: named search/social crawlers first, then the generic
// bot/crawler/spider tokens, then CLI tools. First match wins.
var botPatterns = []botPattern{
	{token: "googlebot", name: "Googlebot"},
	{token: "bingbot", name: "Bingbot"},
	{token: "yandexbot", name: "YandexBot"},
	{token: "baiduspider", name: "Baiduspider"},
	{token: "duckduckbot", name: "DuckDuckBot"},
	{token: "slurp", name: "Yahoo Slurp"},
	{token: "applebot", name: "Applebot"},
	{token: "facebookexternalhit", name: "FacebookBot"},
	{token: "twitterbot", name: "Twitterbot"},
	{token: "linkedinbot", name: "LinkedInBot"},
	{token: "telegrambot", name: "TelegramBot"},
	{token: "whatsapp", name: "WhatsApp"},
	{token: "semrushbot", name: "SemrushBot"},
	{token: "ahrefsbot", name: "AhrefsBot"},
	{token: "bot", name: "Bot"},
	{token: "crawler", name: "Crawler"},
	{token: "spider", name: "Spider"},
	{token: "curl", name: "curl", cli: true},
	{token: "wget", name: "Wget", cli: true},
	{token: "python", name: "Python", cli: true},
	{token: "java", name: "Java", cli: true},
	{token: "apache", name: "Apache HttpClient", cli: true},
}

// CrawlerNames and CLIToolNames expose the classifier's bot vocabulary so the
// bot-detection scorer can distinguish crawlers from automation tools.
var (
	CrawlerNames = map[string]bool{}
	CLIToolNames = map[string]bool{}
)

func init() {
	for _, p := range botPatterns {
		if p.cli {
			CLIToolNames[p.name] = true
		} else {
			CrawlerNames[p.name] = true
		}
	}
}

var (
	edgeVersionRe    = regexp.MustCompile(`edge?/([\d.]+)`)
	chromeVersionRe  = regexp.MustCompile(`chrome/([\d.]+)`)
	safariVersionRe  = regexp.MustCompile(`version/([\d.]+)`)
	firefoxVersionRe = regexp.MustCompile(`firefox/([\d.]+)`)
	operaVersionRe   = regexp.MustCompile(`(?:opr|opera)[/ ]([\d.]+)`)
	msieVersionRe    = regexp.MustCompile(`(?:msie |rv:)([\d.]+)`)

	iosVersionRe     = regexp.MustCompile(`os ([\d_]+) like mac os x`)
	windowsNTRe      = regexp.MustCompile(`windows nt ([\d.]+)`)
	macVersionRe     = regexp.MustCompile(`mac os x (\d+)[_.](\d+)(?:[_.](\d+))?`)
	androidVersionRe = regexp.MustCompile(`android ([\d.]+)`)

	// Android device model, e.g. "Android 14; Pixel 8)" -> "Pixel 8".
	androidModelRe = regexp.MustCompile(`(?i)Android [^;]+; ([^)]+)\)`)
)

// windowsVersions maps Windows NT kernel versions to marketing versions.
var windowsVersions = map[string]string{
	"10.0": "10.0",
	"6.3":  "8.1",
	"6.2":  "8.0",
	"6.1":  "7.0",
	"6.0":  "Vista",
	"5.1":  "XP",
}

// androidVendors maps OEM name fragments found in UA strings to vendor names.
var androidVendors = []struct{ fragment, vendor string }{
	{"samsung", "Samsung"},
	{"sm-", "Samsung"},
	{"huawei", "Huawei"},
	{"xiaomi", "Xiaomi"},
	{"redmi", "Xiaomi"},
	{"oneplus", "OnePlus"},
	{"oppo", "Oppo"},
	{"vivo", "Vivo"},
	{"pixel", "Google"},
	{"motorola", "Motorola"},
	{"moto", "Motorola"},
	{"lg-", "LG"},
	{"nokia", "Nokia"},
	{"sony", "Sony"},
}

// Parse classifies a raw User-Agent header. Detection precedence is
// significant: bot patterns first, then browser family (Edge before Chrome,
// Safari excluding Chrome), then OS (iOS before macOS, since iOS strings
// carry the "Mac OS X" marker too), then device class.
func Parse(raw string) Parsed {
	p := Parsed{
		Browser: Browser{Name: "Unknown", Version: "0.0", Engine: "Unknown"},
		OS:      OS{Name: "Unknown", Version: ""},
		Device:  Device{Type: DeviceUnknown},
		Raw:     raw,
	}
	if raw == "" {
		return p
	}
	ua := strings.ToLower(raw)

	if bp, ok := matchBot(ua); ok {
		p.Browser = Browser{Name: bp.name, Version: "0.0", Engine: "Bot"}
		p.Device = Device{Type: DeviceBot}
		p.OS = detectOS(ua)
		return p
	}

	p.Browser = detectBrowser(ua)
	p.OS = detectOS(ua)
	p.Device = detectDevice(ua, raw, p.Browser, p.OS)
	return p
}

func matchBot(ua string) (botPattern, bool) {
	for _, bp := range botPatterns {
		if strings.Contains(ua, bp.token) {
			return bp, true
		}
	}
	return botPattern{}, false
}

func detectBrowser(ua string) Browser {
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		return Browser{Name: "Edge", Version: extractVersion(edgeVersionRe, ua), Engine: "Blink"}
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edg"):
		return Browser{Name: "Chrome", Version: extractVersion(chromeVersionRe, ua), Engine: "Blink"}
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		return Browser{Name: "Safari", Version: extractVersion(safariVersionRe, ua), Engine: "WebKit"}
	case strings.Contains(ua, "firefox"):
		return Browser{Name: "Firefox", Version: extractVersion(firefoxVersionRe, ua), Engine: "Gecko"}
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		return Browser{Name: "Opera", Version: extractVersion(operaVersionRe, ua), Engine: "Blink"}
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident/"):
		return Browser{Name: "Internet Explorer", Version: extractVersion(msieVersionRe, ua), Engine: "Trident"}
	}
	return Browser{Name: "Unknown", Version: "0.0", Engine: "Unknown"}
}

func detectOS(ua string) OS {
	switch {
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod"):
		version := ""
		if m := iosVersionRe.FindStringSubmatch(ua); m != nil {
			version = strings.ReplaceAll(m[1], "_", ".")
		}
		return OS{Name: "iOS", Version: version}
	case strings.Contains(ua, "windows nt"):
		version := ""
		if m := windowsNTRe.FindStringSubmatch(ua); m != nil {
			version = m[1]
			if mapped, ok := windowsVersions[version]; ok {
				version = mapped
			}
		}
		return OS{Name: "Windows", Version: version}
	case strings.Contains(ua, "mac os x"):
		version := ""
		if m := macVersionRe.FindStringSubmatch(ua); m != nil {
			version = m[1] + "." + m[2]
			if m[3] != "" {
				version += "." + m[3]
			}
		}
		return OS{Name: "macOS", Version: version}
	case strings.Contains(ua, "android"):
		return OS{Name: "Android", Version: extractVersion(androidVersionRe, ua)}
	case strings.Contains(ua, "linux"):
		return OS{Name: "Linux"}
	case strings.Contains(ua, "cros"):
		return OS{Name: "Chrome OS"}
	}
	return OS{Name: "Unknown"}
}

func detectDevice(ua, raw string, browser Browser, os OS) Device {
	switch {
	case strings.Contains(ua, "ipad"):
		return Device{Type: DeviceTablet, Vendor: "Apple", Model: "iPad"}
	case strings.Contains(ua, "kindle"):
		return Device{Type: DeviceTablet, Vendor: "Amazon", Model: "Kindle"}
	case strings.Contains(ua, "tablet"):
		d := Device{Type: DeviceTablet}
		d.Vendor, d.Model = sniffAndroidDevice(ua, raw)
		return d
	case strings.Contains(ua, "iphone"):
		return Device{Type: DeviceMobile, Vendor: "Apple", Model: "iPhone"}
	case strings.Contains(ua, "ipod"):
		return Device{Type: DeviceMobile, Vendor: "Apple", Model: "iPod"}
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android"):
		d := Device{Type: DeviceMobile}
		d.Vendor, d.Model = sniffAndroidDevice(ua, raw)
		return d
	}
	if browser.Name == "Unknown" && os.Name == "Unknown" {
		return Device{Type: DeviceUnknown}
	}
	return Device{Type: DeviceDesktop}
}

// sniffAndroidDevice extracts vendor and model from the device segment of an
// Android UA string, e.g. "(Linux; Android 14; Pixel 8)". The vendor lookup
// runs on the lower-cased string; the model keeps the original casing.
func sniffAndroidDevice(ua, raw string) (vendor, model string) {
	for _, v := range androidVendors {
		if strings.Contains(ua, v.fragment) {
			vendor = v.vendor
			break
		}
	}
	if m := androidModelRe.FindStringSubmatch(raw); m != nil {
		model = strings.TrimSpace(m[1])
		// Strip the trailing build identifier some OEMs embed.
		if i := strings.Index(strings.ToLower(model), " build/"); i > 0 {
			model = model[:i]
		}
	}
	return vendor, model
}

func extractVersion(re *regexp.Regexp, ua string) string {
	if m := re.FindStringSubmatch(ua); m != nil {
		return m[1]
	}
	return "0.0"
}
