// Package storage keeps uploaded post images on local disk or in an S3
// compatible bucket.
package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/segmentio/ksuid"
)

// ImagePrefix is the URL path segment under which images are exposed.
const ImagePrefix = "images"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName returns a unique, time-sortable file name that keeps the
// client's original name as a suffix.
func objectName(original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "image"
	}
	return ksuid.New().String() + "-" + base
}
