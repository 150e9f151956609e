package utils

import "strings"

const unknownLabel = "Unknown"

// DeviceName derives a coarse device label from a User-Agent header.
// Mobile user agents are classified before desktop ones.
func DeviceName(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return unknownLabel
	}
	if strings.Contains(ua, "Mobile") {
		switch {
		case strings.Contains(ua, "iPhone"):
			return "iPhone"
		case strings.Contains(ua, "Android"):
			return "Android Device"
		case strings.Contains(ua, "iPad"):
			return "iPad"
		}
		return "Mobile Device"
	}
	switch {
	case strings.Contains(ua, "iPad"):
		return "iPad"
	case strings.Contains(ua, "Android"):
		return "Android Device"
	case strings.Contains(ua, "Windows"):
		return "Windows PC"
	case strings.Contains(ua, "Macintosh"):
		return "Mac"
	case strings.Contains(ua, "Linux"):
		return "Linux PC"
	}
	return "Unknown Device"
}

// OSName derives an operating-system label from a User-Agent header.
// Android and iOS are checked first since their headers also mention
// Linux and Mac OS X.
func OSName(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return unknownLabel
	}
	switch {
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "iOS"
	case strings.Contains(ua, "Windows NT 10"):
		return "Windows 10/11"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac OS X"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	}
	return "Unknown OS"
}
