//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package platform

func osVersion() (release, version string) {
	return "", ""
}
