package utils

import "testing"

const (
	uaIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
	uaIPad    = "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"
	uaWin10   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	uaWin7    = "Mozilla/5.0 (Windows NT 6.1; Win64; x64) Gecko/20100101 Firefox/115.0"
	uaMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
	uaLinux   = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
	uaMobile  = "SomeBrowser/1.0 Mobile"
	uaTablet  = "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	uaCurl    = "curl/8.4.0"
)

func TestDeviceName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":        "Unknown",
		"   ":     "Unknown",
		uaIPhone:  "iPhone",
		uaAndroid: "Android Device",
		uaIPad:    "iPad",
		uaMobile:  "Mobile Device",
		uaTablet:  "Android Device",
		uaWin10:   "Windows PC",
		uaMac:     "Mac",
		uaLinux:   "Linux PC",
		uaCurl:    "Unknown Device",
	}
	for ua, want := range tests {
		if got := DeviceName(ua); got != want {
			t.Fatalf("DeviceName(%q) = %q, want %q", ua, got, want)
		}
	}
}

func TestOSName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":        "Unknown",
		uaIPhone:  "iOS",
		uaIPad:    "iOS",
		uaAndroid: "Android",
		uaTablet:  "Android",
		uaWin10:   "Windows 10/11",
		uaWin7:    "Windows",
		uaMac:     "macOS",
		uaLinux:   "Linux",
		uaCurl:    "Unknown OS",
	}
	for ua, want := range tests {
		if got := OSName(ua); got != want {
			t.Fatalf("OSName(%q) = %q, want %q", ua, got, want)
		}
	}
}
