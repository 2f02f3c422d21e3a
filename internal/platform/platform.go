// Package platform reports which host OS the service runs on and which
// chat automation method that OS supports.
package platform

import (
	"runtime"
	"strings"
)

// Names as reported by /platform.
const (
	Windows = "Windows"
	Darwin  = "Darwin"
	Linux   = "Linux"
)

// Automation methods.
const (
	MethodUIAutomation = "UIAutomation"
	MethodAppleScript  = "AppleScript"
	MethodUnsupported  = "unsupported"
)

// Info describes the host platform.
type Info struct {
	Platform  string `json:"platform"`
	Release   string `json:"platform_release"`
	Version   string `json:"platform_version"`
	Supported bool   `json:"supported"`
	Method    string `json:"wechat_method"`
}

// Detect inspects the running host.
func Detect() Info {
	release, version := osVersion()
	return New(Name(runtime.GOOS), release, version)
}

// New builds an Info for the named platform, deriving support and method.
func New(name, release, version string) Info {
	return Info{
		Platform:  name,
		Release:   release,
		Version:   version,
		Supported: IsSupported(name),
		Method:    MethodFor(name),
	}
}

// Name maps a GOOS value to the capitalized system name ("windows" -> "Windows").
func Name(goos string) string {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	case "linux":
		return Linux
	case "":
		return ""
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}

// IsSupported reports whether chat automation exists for the platform.
func IsSupported(name string) bool {
	return name == Windows || name == Darwin
}

// MethodFor returns the automation method used on the platform.
func MethodFor(name string) string {
	switch name {
	case Windows:
		return MethodUIAutomation
	case Darwin:
		return MethodAppleScript
	default:
		return MethodUnsupported
	}
}
