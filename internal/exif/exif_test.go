package exif

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureTimeEmptyInput(t *testing.T) {
	_, ok := CaptureTime(nil)
	require.False(t, ok)

	_, ok = CaptureTime([]byte{})
	require.False(t, ok)
}

func TestCaptureTimeGarbageInput(t *testing.T) {
	_, ok := CaptureTime([]byte("definitely not an image"))
	require.False(t, ok)
}

func TestCaptureTimeImageWithoutMetadata(t *testing.T) {
	// Minimal JPEG markers with no APP1/EXIF segment.
	bare := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x04, 0x00, 0x00, 0xFF, 0xD9}
	_, ok := CaptureTime(bare)
	require.False(t, ok)
}

func TestCaptureTimeCraftedHeaders(t *testing.T) {
	// Inputs that get past the magic-byte sniff but carry broken EXIF/TIFF
	// structures; each must come back as "no timestamp", never a panic.
	cases := map[string][]byte{
		"truncated APP1 segment": {
			0xFF, 0xD8, // SOI
			0xFF, 0xE1, 0x00, 0x08, // APP1, declared length past the payload
			'E', 'x', 'i', 'f', 0x00, 0x00,
		},
		"APP1 with clipped TIFF header": {
			0xFF, 0xD8,
			0xFF, 0xE1, 0x00, 0x10,
			'E', 'x', 'i', 'f', 0x00, 0x00,
			'I', 'I', 0x2A, 0x00, // little-endian TIFF magic, no IFD offset
		},
		"bare TIFF with wild IFD offset": {
			'M', 'M', 0x00, 0x2A,
			0xFF, 0xFF, 0xFF, 0xFF, // first IFD far outside the buffer
		},
		"TIFF with oversized entry count": {
			'I', 'I', 0x2A, 0x00,
			0x08, 0x00, 0x00, 0x00, // IFD at offset 8
			0xFF, 0xFF, // 65535 directory entries, no data behind them
		},
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := CaptureTime(data)
			require.False(t, ok)
		})
	}
}
