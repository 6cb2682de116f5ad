package publish

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// StripMetadata removes EXIF metadata from an image before it goes public.
// It returns the sanitized bytes and the names of the tags that were
// removed. Images without EXIF pass through untouched; images with EXIF are
// re-encoded, which drops every metadata segment.
func StripMetadata(imageData []byte) ([]byte, []string, error) {
	rawExif, err := exif.SearchAndExtractExif(imageData)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return imageData, nil, nil
		}
		// Unparseable metadata still gets stripped by re-encoding.
		stripped, reErr := reencode(imageData)
		if reErr != nil {
			return nil, nil, reErr
		}
		return stripped, []string{"unparsed"}, nil
	}

	var tags []string
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err == nil {
		for _, entry := range entries {
			tags = append(tags, entry.TagName)
		}
	} else {
		tags = []string{"unparsed"}
	}

	stripped, err := reencode(imageData)
	if err != nil {
		return nil, nil, err
	}
	return stripped, tags, nil
}

// hasGPSTag reports whether any removed tag carries location data.
func hasGPSTag(tags []string) bool {
	for _, tag := range tags {
		if strings.HasPrefix(tag, "GPS") {
			return true
		}
	}
	return false
}

// reencode decodes and re-encodes the image as JPEG, dropping all non-pixel
// segments.
func reencode(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("failed to re-encode image: %w", err)
	}
	return buf.Bytes(), nil
}
