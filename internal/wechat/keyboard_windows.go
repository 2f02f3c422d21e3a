//go:build windows

package wechat

import (
	"time"

	"github.com/micmonay/keybd_event"
)

type keybdKeyboard struct{}

func newKeyboard() (Keyboard, error) {
	// Fail early if the input API is unavailable.
	if _, err := keybd_event.NewKeyBonding(); err != nil {
		return nil, err
	}
	return keybdKeyboard{}, nil
}

func (keybdKeyboard) Find() error  { return press(true, keybd_event.VK_F) }
func (keybdKeyboard) Paste() error { return press(true, keybd_event.VK_V) }
func (keybdKeyboard) Enter() error { return press(false, keybd_event.VK_ENTER) }

func press(ctrl bool, keys ...int) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(ctrl)
	kb.SetKeys(keys...)
	if err := kb.Launching(); err != nil {
		return err
	}
	time.Sleep(80 * time.Millisecond)
	return nil
}
