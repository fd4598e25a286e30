package services

import (
	"fmt"
	"strings"
	"time"
)

// NamingInput describes one file of an upload batch for name resolution.
type NamingInput struct {
	OriginalName string
	IsImage      bool
	// CaptureTime is the recovered capture timestamp, nil when none was found.
	CaptureTime *time.Time
}

// NameResolver computes the stored display name for each file in an upload
// batch. Non-image files keep their original name; images are renamed to
// DD-MM-YYYY.<ext> using the capture date, falling back to the current date.
type NameResolver struct {
	now func() time.Time
}

// NewNameResolver builds a resolver; a nil clock defaults to time.Now.
func NewNameResolver(clock func() time.Time) *NameResolver {
	if clock == nil {
		clock = time.Now
	}
	return &NameResolver{now: clock}
}

// Resolve returns one stored name per input, in batch order.
//
// Within a batch, the first image mapped to a given date keeps the bare
// DD-MM-YYYY.<ext> form; later images on the same date get a _<batchIndex>
// suffix, where the index is the file's 0-based position in the batch. Images
// on the same date uploaded in separate batches can therefore still collide;
// that limitation is intentional and covered by tests rather than fixed here.
func (r *NameResolver) Resolve(batch []NamingInput) []string {
	names := make([]string, len(batch))
	taken := make(map[string]struct{}, len(batch))

	for i, file := range batch {
		if !file.IsImage {
			names[i] = file.OriginalName
			continue
		}

		date := r.now()
		if file.CaptureTime != nil {
			date = *file.CaptureTime
		}

		stem := fmt.Sprintf("%02d-%02d-%04d", date.Day(), int(date.Month()), date.Year())
		ext := extension(file.OriginalName)

		if _, exists := taken[stem]; exists {
			names[i] = fmt.Sprintf("%s_%d.%s", stem, i, ext)
			continue
		}

		taken[stem] = struct{}{}
		// A file without an extension yields a trailing empty segment ("01-02-2025.").
		names[i] = stem + "." + ext
	}

	return names
}

// extension returns the final dot-segment of the original filename verbatim,
// or an empty string when the name has no dot.
func extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}
