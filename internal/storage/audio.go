package storage

import (
	"fmt"
	"strings"
	"time"
)

// Characters Windows does not allow in file names.
var unsafeChars = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename replaces each of \ / : * ? " < > | with an underscore
func SanitizeFilename(name string) string {
	return unsafeChars.Replace(name)
}

// AudioFileName builds the local name for a downloaded clip, e.g. "10月5日早安.mp3"
func AudioFileName(now time.Time, message string) string {
	name := fmt.Sprintf("%d月%d日%s.mp3", int(now.Month()), now.Day(), message)
	return SanitizeFilename(name)
}

// RecordingFileName builds the output name for a screen recording
func RecordingFileName(now time.Time) string {
	return "recording_" + now.Format("20060102_150405") + ".webm"
}
