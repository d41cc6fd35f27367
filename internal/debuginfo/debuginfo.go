// Package debuginfo builds the error report users copy when playback fails.
package debuginfo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mssola/useragent"
)

var tvAgent = regexp.MustCompile(`(?i)SmartTV|Tizen|WebOS|SamsungBrowser|HbbTV|Viera|NetCast|AppleTV|Android TV|GoogleTV|Roku|PlayStation|Xbox|Opera TV|AquosBrowser|Hisense|SonyBrowser|SharpBrowser|AFT|Chromecast`)

const mobileMaxWidth = 768

type (
	Report struct {
		Timestamp   time.Time   `json:"timestamp"`
		Error       ErrorInfo   `json:"error"`
		Device      Device      `json:"device"`
		Player      Player      `json:"player"`
		Network     Network     `json:"network"`
		Performance Performance `json:"performance"`
	}

	ErrorInfo struct {
		Message    string `json:"message"`
		Type       string `json:"type"`
		StackTrace string `json:"stack_trace,omitempty"`
	}

	Device struct {
		UserAgent        string `json:"user_agent"`
		Browser          string `json:"browser"`
		OS               string `json:"os"`
		IsMobile         bool   `json:"is_mobile"`
		IsTV             bool   `json:"is_tv"`
		ScreenResolution string `json:"screen_resolution"`
		ViewportSize     string `json:"viewport_size"`
	}

	Player struct {
		Status         string     `json:"status"`
		SourceID       string     `json:"source_id,omitempty"`
		CurrentQuality string     `json:"current_quality,omitempty"`
		Meta           *MediaMeta `json:"meta,omitempty"`
	}

	MediaMeta struct {
		Title       string `json:"title"`
		Type        string `json:"type"`
		TMDbID      string `json:"tmdb_id"`
		IMDbID      string `json:"imdb_id,omitempty"`
		ReleaseYear int    `json:"release_year"`
		Season      int    `json:"season,omitempty"`
		Episode     int    `json:"episode,omitempty"`
	}

	Network struct {
		Online         bool    `json:"online"`
		ConnectionType string  `json:"connection_type,omitempty"`
		EffectiveType  string  `json:"effective_type,omitempty"`
		Downlink       float64 `json:"downlink,omitempty"` // Mbps
		RTT            float64 `json:"rtt,omitempty"`      // ms
	}

	Performance struct {
		Memory *Memory `json:"memory,omitempty"`
		Timing Timing  `json:"timing"`
	}

	// Memory is in bytes.
	Memory struct {
		UsedHeap  float64 `json:"used_js_heap_size"`
		TotalHeap float64 `json:"total_js_heap_size"`
		HeapLimit float64 `json:"js_heap_size_limit"`
	}

	Timing struct {
		NavigationStart          float64 `json:"navigation_start"`
		LoadEventEnd             float64 `json:"load_event_end"`
		DOMContentLoadedEventEnd float64 `json:"dom_content_loaded_event_end"`
	}
)

// Gather completes a client report with what the server can tell on its own:
// the time and what the user agent says about the device.
func Gather(r Report, userAgent string, now time.Time) Report {
	r.Timestamp = now.UTC()
	if r.Error.Type == "" {
		r.Error.Type = "unknown"
	}
	if r.Device.UserAgent == "" {
		r.Device.UserAgent = userAgent
	}

	ua := useragent.New(r.Device.UserAgent)
	name, _ := ua.Browser()
	r.Device.Browser = orUnknown(name)
	r.Device.OS = orUnknown(ua.OS())
	r.Device.IsTV = tvAgent.MatchString(r.Device.UserAgent)

	if width, ok := viewportWidth(r.Device.ViewportSize); ok {
		r.Device.IsMobile = width <= mobileMaxWidth
	} else {
		r.Device.IsMobile = ua.Mobile()
	}

	return r
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

// viewportWidth reads the width out of "WIDTHxHEIGHT".
func viewportWidth(size string) (int, bool) {
	w, _, ok := strings.Cut(size, "x")
	if !ok {
		return 0, false
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, false
	}
	return width, true
}

// Format renders the report as the plain text users paste into bug reports.
// Optional lines are left out when their value is missing.
func Format(r Report) string {
	lines := []string{
		"=== ERROR DEBUG INFO ===",
		"Timestamp: " + r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		"=== ERROR DETAILS ===",
		"Type: " + r.Error.Type,
		"Message: " + r.Error.Message,
		optional(r.Error.StackTrace != "", "Stack Trace:\n"+r.Error.StackTrace),
		"=== DEVICE INFO ===",
		fmt.Sprintf("Browser: %s (%s)", r.Device.Browser, r.Device.OS),
		"User Agent: " + r.Device.UserAgent,
		"Screen: " + r.Device.ScreenResolution,
		"Viewport: " + r.Device.ViewportSize,
		fmt.Sprintf("Mobile: %t", r.Device.IsMobile),
		fmt.Sprintf("TV: %t", r.Device.IsTV),
		"=== PLAYER STATE ===",
		"Status: " + r.Player.Status,
		"Source ID: " + orNull(r.Player.SourceID),
		"Quality: " + orNull(r.Player.CurrentQuality),
	}

	if m := r.Player.Meta; m != nil {
		lines = append(lines,
			fmt.Sprintf("Media: %s (%s)", m.Title, m.Type),
			"TMDB ID: "+m.TMDbID,
			optional(m.IMDbID != "", "IMDB ID: "+m.IMDbID),
			fmt.Sprintf("Year: %d", m.ReleaseYear),
			optional(m.Season != 0, fmt.Sprintf("Season: %d", m.Season)),
			optional(m.Episode != 0, fmt.Sprintf("Episode: %d", m.Episode)),
		)
	} else {
		lines = append(lines, "No media loaded")
	}

	n := r.Network
	lines = append(lines,
		"=== NETWORK INFO ===",
		fmt.Sprintf("Online: %t", n.Online),
		optional(n.ConnectionType != "", "Connection Type: "+n.ConnectionType),
		optional(n.EffectiveType != "", "Effective Type: "+n.EffectiveType),
		optional(n.Downlink != 0, "Downlink: "+number(n.Downlink)+" Mbps"),
		optional(n.RTT != 0, "RTT: "+number(n.RTT)+" ms"),
		"=== PERFORMANCE ===",
	)

	if mem := r.Performance.Memory; mem != nil {
		lines = append(lines,
			fmt.Sprintf("Memory Used: %d MB", megabytes(mem.UsedHeap)),
			fmt.Sprintf("Memory Total: %d MB", megabytes(mem.TotalHeap)),
			fmt.Sprintf("Memory Limit: %d MB", megabytes(mem.HeapLimit)),
		)
	} else {
		lines = append(lines, "Memory info not available")
	}

	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func optional(present bool, line string) string {
	if !present {
		return ""
	}
	return line
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func megabytes(bytes float64) int64 {
	return int64(math.Round(bytes / 1024 / 1024))
}
