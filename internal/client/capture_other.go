//go:build !linux || !cgo

package client

import (
	"fmt"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
)

// Camera/mic capture via pion/mediadevices requires platform drivers
// (V4L2/malgo on Linux); elsewhere the browser handles media.
func captureLocalMedia(domain.CallKind) (*LocalMedia, error) {
	return nil, fmt.Errorf("%w: no capture drivers on this platform", core.ErrMediaUnavailable)
}
