package etl

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/BartekS5/npiload/pkg/models"
)

// Extract returns the first archive member, in stored order, whose name
// starts with prefix and does not end with excludeSuffix. Only that member
// is decompressed.
func Extract(archive []byte, prefix, excludeSuffix string) (*models.Payload, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, markf(ErrFetch, err, "archive is not a valid zip")
	}

	for _, f := range zr.File {
		if !matchesMember(f.Name, prefix, excludeSuffix) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, markf(ErrFetch, err, "failed to open archive member %s", f.Name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, markf(ErrFetch, err, "failed to decompress archive member %s", f.Name)
		}
		return &models.Payload{FileName: f.Name, Content: content}, nil
	}

	return nil, markf(ErrPayloadNotFound, nil,
		"no archive member starts with %q without suffix %q", prefix, excludeSuffix)
}

func matchesMember(name, prefix, excludeSuffix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	return excludeSuffix == "" || !strings.HasSuffix(name, excludeSuffix)
}
