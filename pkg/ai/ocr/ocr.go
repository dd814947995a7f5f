// Package ocr defines the structured document model produced by OCR
// providers, the provider contract, and the failover client that turns a
// page image into a Document.
package ocr

import (
	"context"
	"encoding/base64"
	"net/http"
)

// Provider recognises a single page image.
//
// Providers are ordered by ascending Priority. Available reports whether
// the provider is configured and reachable enough to be tried at all.
// Returned errors should carry retryability via errx so the client can
// decide between retrying and failing over.
type Provider interface {
	Name() string
	Priority() int
	Available() bool
	Recognize(ctx context.Context, img Image, opts ...Option) (*Document, error)
}

// Image is one encoded page image.
type Image struct {
	Data     []byte
	MimeType string
	// PageNo is the 1-based source page, informational for providers.
	PageNo int
}

// NewImage sniffs the mime type when not given.
func NewImage(data []byte, mimeType string) Image {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Image{Data: data, MimeType: mimeType}
}

// DataURL encodes the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}
