// Package exif recovers the original capture timestamp embedded in image
// files. It is strictly best-effort: malformed or metadata-free input yields
// "no timestamp", never an error.
package exif

import (
	"bytes"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
)

// CaptureTime extracts the capture timestamp (DateTimeOriginal, falling back
// to DateTime) from raw image bytes. The boolean reports whether a usable
// timestamp was found.
func CaptureTime(data []byte) (taken time.Time, ok bool) {
	// goexif has panicked on crafted EXIF segments in the past; a panic from
	// the decoder must read as "no timestamp" here.
	defer func() {
		if recover() != nil {
			taken, ok = time.Time{}, false
		}
	}()

	if len(data) == 0 {
		return time.Time{}, false
	}

	parsed, err := goexif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}

	taken, err = parsed.DateTime()
	if err != nil || taken.IsZero() {
		return time.Time{}, false
	}

	return taken, true
}
