// internal/domain/snapshot/snapshot.go
package snapshot

import (
	"context"
	"fmt"
)

// Capture and upload failures. Implementations wrap these with %w so callers can classify with errors.Is.
var ErrCapture = fmt.Errorf("surface capture failed")
var ErrEncoding = fmt.Errorf("payload is not a recognized image")
var ErrHostUnavailable = fmt.Errorf("image host unavailable")
var ErrHostRejected = fmt.Errorf("image host rejected the upload")
var ErrHostMalformedResponse = fmt.Errorf("image host returned a malformed response")

// Capturer renders a named visual surface to an encoded image
// (a data URL such as "data:image/png;base64,...").
type Capturer interface {
	Capture(ctx context.Context, surfaceID string) (string, error)
}

// ImageHost accepts a raw base64 image (no data URL prefix) and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, base64Image string) (string, error)
}
