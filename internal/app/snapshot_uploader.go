package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"procurement_digest_bot/internal/domain/snapshot"
)

// SnapshotUploader captures the map surface and publishes the image.
// It makes exactly one outbound call per operation and never retries.
type SnapshotUploader struct {
	capturer snapshot.Capturer
	host     snapshot.ImageHost
}

func NewSnapshotUploader(capturer snapshot.Capturer, host snapshot.ImageHost) *SnapshotUploader {
	return &SnapshotUploader{capturer: capturer, host: host}
}

// Capture returns the surface as a data URL. Failures are classified as snapshot.ErrCapture.
func (u *SnapshotUploader) Capture(ctx context.Context, surfaceID string) (string, error) {
	encoded, err := u.capturer.Capture(ctx, surfaceID)
	if err != nil {
		if isClassified(err, snapshot.ErrCapture) {
			return "", err
		}
		return "", fmt.Errorf("%w: surface %q: %v", snapshot.ErrCapture, surfaceID, err)
	}
	return encoded, nil
}

// Upload validates the data URL, strips its prefix and sends the raw base64 to the host.
func (u *SnapshotUploader) Upload(ctx context.Context, encodedImage string) (string, error) {
	raw, err := stripImageDataURL(encodedImage)
	if err != nil {
		return "", err
	}
	url, err := u.host.Upload(ctx, raw)
	if err != nil {
		if isClassified(err, snapshot.ErrHostUnavailable, snapshot.ErrHostRejected, snapshot.ErrHostMalformedResponse, snapshot.ErrEncoding) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", snapshot.ErrHostUnavailable, err)
	}
	return url, nil
}

// stripImageDataURL turns "data:image/png;base64,AAAA" into "AAAA".
func stripImageDataURL(encoded string) (string, error) {
	if !strings.HasPrefix(encoded, "data:image/") {
		return "", fmt.Errorf("%w: missing data:image/ prefix", snapshot.ErrEncoding)
	}
	header, payload, found := strings.Cut(encoded, ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("%w: data URL is not base64 encoded", snapshot.ErrEncoding)
	}
	if payload == "" {
		return "", fmt.Errorf("%w: empty image payload", snapshot.ErrEncoding)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrEncoding, err)
	}
	return payload, nil
}
