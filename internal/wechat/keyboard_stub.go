//go:build !windows

package wechat

import "fmt"

// newKeyboard is not supported on non-Windows builds.
func newKeyboard() (Keyboard, error) {
	return nil, fmt.Errorf("keyboard injection not supported on this platform")
}
