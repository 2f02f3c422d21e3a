package recorder

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// playProbe locates a play control. A non-empty text matches the button label.
type playProbe struct {
	selector string
	text     string
	media    bool
}

func (p playProbe) String() string {
	if p.text != "" {
		return p.selector + ` with text "` + p.text + `"`
	}
	return p.selector
}

// playProbes are tried in order; the first match wins.
var playProbes = []playProbe{
	{selector: `button[aria-label*="play"]`},
	{selector: `button[title*="play"]`},
	{selector: `.play-button`},
	{selector: `#playButton`},
	{selector: `button`, text: "播放"},
	{selector: `button`, text: "Play"},
	{selector: `[role="button"][aria-label*="play"]`},
	{selector: `audio`, media: true},
	{selector: `video`, media: true},
}

const playMediaJS = `() => { const p = this.play(); if (p) p.catch(() => {}); return true }`

const playFallbackJS = `() => {
	const media = document.querySelector('audio') || document.querySelector('video');
	if (!media) return false;
	const p = media.play();
	if (p) p.catch(() => {});
	return true;
}`

// play starts playback and returns the probe that matched, or "" when the
// script fallback was used. Each probe, and the fallback, is bounded by
// timeout; a control that never becomes clickable counts as a failed probe.
func play(page *rod.Page, timeout time.Duration, log *zap.Logger) string {
	for _, probe := range playProbes {
		found, err := tryProbe(page, probe, timeout)
		if err != nil {
			log.Debug("probe failed", zap.Stringer("probe", probe), zap.Error(err))
			continue
		}
		if found {
			return probe.String()
		}
	}

	p := withTimeout(page, timeout)
	defer p.CancelTimeout()
	if _, err := p.Eval(playFallbackJS); err != nil {
		log.Warn("script playback failed", zap.Error(err))
	}
	return ""
}

// tryProbe reports whether probe matched and was started.
func tryProbe(page *rod.Page, probe playProbe, timeout time.Duration) (bool, error) {
	p := withTimeout(page, timeout)
	defer p.CancelTimeout()

	var (
		found bool
		el    *rod.Element
		err   error
	)
	if probe.text != "" {
		found, el, err = p.HasR(probe.selector, probe.text)
	} else {
		found, el, err = p.Has(probe.selector)
	}
	if err != nil || !found {
		return false, err
	}

	if probe.media {
		_, err = el.Eval(playMediaJS)
	} else {
		err = el.Click(proto.InputMouseButtonLeft, 1)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// withTimeout returns page bounded by d. CancelTimeout must be called on the result.
func withTimeout(page *rod.Page, d time.Duration) *rod.Page {
	if d <= 0 {
		d = DefaultConfig().ProbeTimeout
	}
	return page.Timeout(d)
}
