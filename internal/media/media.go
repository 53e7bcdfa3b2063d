// Package media is the local-media boundary. The signaling core asks it
// for the current set of local tracks and toggles them; actual capture is
// a collaborator's job and happens outside this repository's core by
// feeding samples into the tracks.
package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Track kinds accepted by SetEnabled.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Local exposes the media handle the session layer works against.
type Local interface {
	// Tracks returns the currently enabled local tracks.
	Tracks() []webrtc.TrackLocal

	// SetEnabled toggles a track kind on or off. It reports whether the
	// composition actually changed, so callers know when to renegotiate.
	SetEnabled(kind string, enabled bool) bool

	// Close releases the local media resources.
	Close() error
}

// Source is a Local backed by static sample tracks. A capture
// collaborator writes encoded samples via WriteAudio/WriteVideo.
type Source struct {
	mu sync.Mutex

	audio        *webrtc.TrackLocalStaticSample
	video        *webrtc.TrackLocalStaticSample
	audioEnabled bool
	videoEnabled bool
}

// NewSource creates local audio (Opus) and/or video (VP8) tracks.
func NewSource(audio, video bool) (*Source, error) {
	s := &Source{}

	if audio {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "vconf",
		)
		if err != nil {
			return nil, err
		}
		s.audio = track
		s.audioEnabled = true
	}

	if video {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "vconf",
		)
		if err != nil {
			return nil, err
		}
		s.video = track
		s.videoEnabled = true
	}

	return s, nil
}

func (s *Source) Tracks() []webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tracks []webrtc.TrackLocal
	if s.audio != nil && s.audioEnabled {
		tracks = append(tracks, s.audio)
	}
	if s.video != nil && s.videoEnabled {
		tracks = append(tracks, s.video)
	}
	return tracks
}

func (s *Source) SetEnabled(kind string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case KindAudio:
		if s.audio == nil || s.audioEnabled == enabled {
			return false
		}
		s.audioEnabled = enabled
	case KindVideo:
		if s.video == nil || s.videoEnabled == enabled {
			return false
		}
		s.videoEnabled = enabled
	default:
		return false
	}
	return true
}

// WriteAudio feeds one encoded audio sample into the local audio track.
func (s *Source) WriteAudio(sample pionmedia.Sample) error {
	if s.audio == nil {
		return nil
	}
	return s.audio.WriteSample(sample)
}

// WriteVideo feeds one encoded video sample into the local video track.
func (s *Source) WriteVideo(sample pionmedia.Sample) error {
	if s.video == nil {
		return nil
	}
	return s.video.WriteSample(sample)
}

func (s *Source) Close() error {
	return nil
}
