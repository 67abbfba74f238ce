package mcp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMimeTypeForPath(t *testing.T) {
	cases := map[string]string{
		"fig1.png":     "image/png",
		"fig2.JPG":     "image/jpeg",
		"chart.svg":    "image/svg+xml",
		"scan.tif":     "image/tiff",
		"report.pdf":   "application/pdf",
		"unknown.xyz":  "application/octet-stream",
		"no_extension": "application/octet-stream",
	}
	for path, want := range cases {
		require.Equal(t, want, MimeTypeForPath(path), path)
	}
}
