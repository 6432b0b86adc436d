package core

import "time"

// PlaybackState is a snapshot of what the playback host is doing.
type PlaybackState struct {
	File      string        `json:"file"`
	IsPlaying bool          `json:"is_playing"`
	Progress  time.Duration `json:"progress"`
	Duration  time.Duration `json:"duration"`
}

// HasItem returns true if the host has a file loaded.
func (s *PlaybackState) HasItem() bool {
	return s != nil && s.File != ""
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *PlaybackState) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	return float64(s.Progress) / float64(s.Duration) * 100
}
