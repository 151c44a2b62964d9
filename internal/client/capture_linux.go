//go:build linux && cgo

package client

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
)

// captureLocalMedia opens the camera and/or microphone through
// pion/mediadevices (V4L2 + malgo). Video capture is only attempted for
// video calls; audio is always requested. A denied or missing device
// surfaces as ErrMediaUnavailable so the caller can prompt or retry.
func captureLocalMedia(kind domain.CallKind) (*LocalMedia, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMediaUnavailable, err)
	}
	vpxParams.BitRate = 1_500_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMediaUnavailable, err)
	}

	codecSelector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	mediaEngine := &webrtc.MediaEngine{}
	codecSelector.Populate(mediaEngine)

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	)

	constraints := mediadevices.MediaStreamConstraints{Codec: codecSelector}
	constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
	if kind == domain.CallVideo {
		constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
			// Raw formats only; some cameras expose an MJPEG node that
			// produces malformed frames and poisons the VP8 encoder.
			c.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatYUYV,
				frame.FormatI420,
				frame.FormatI444,
				frame.FormatRGBA,
			}
			c.Width = prop.IntRanged{Max: 640}
			c.Height = prop.IntRanged{Max: 480}
		}
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMediaUnavailable, err)
	}

	tracks := stream.GetTracks()
	locals := make([]webrtc.TrackLocal, 0, len(tracks))
	for _, t := range tracks {
		t.OnEnded(func(err error) {
			if err != nil {
				log.Warn().Err(err).Str("module", "client.media").Msg("local track ended")
			}
		})
		locals = append(locals, t)
	}
	stop := func() {
		for _, t := range tracks {
			_ = t.Close()
		}
	}

	log.Info().Str("module", "client.media").Str("kind", string(kind)).Int("tracks", len(locals)).Msg("local media captured")
	return NewLocalMedia(locals, api, stop), nil
}
