//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func osVersion() (release, version string) {
	v := windows.RtlGetVersion()
	release = fmt.Sprintf("%d", v.MajorVersion)
	if v.MajorVersion == 10 && v.BuildNumber >= 22000 {
		release = "11"
	}
	return release, fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}
