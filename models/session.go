package models

import (
	"path/filepath"
	"time"
)

// ImageDescription is the structured result of analyzing a source image.
type ImageDescription struct {
	Subject          string `json:"subject" jsonschema_description:"The main subject of the image: a male, female, child, animal, object, etc."`
	ImageDescription string `json:"image_description" jsonschema_description:"A clear, detailed description of the image contents"`
}

// SceneAsset pairs one scene's generated image and audio file. Exactly one
// asset exists per story scene after a completed generation run; a scene whose
// provider calls all fail still yields an asset through fallbacks.
type SceneAsset struct {
	SceneID   int    `json:"scene_id"`
	ImagePath string `json:"image_path"`
	AudioPath string `json:"audio_path"`
}

// Session is the server-side record of one in-progress movie, keyed by an
// opaque id. It accumulates artifacts additively as the pipelines run.
type Session struct {
	ID                string           `json:"id"`
	OriginalImagePath string           `json:"original_image_path"`
	ImageDescription  ImageDescription `json:"image_description"`
	Story             *Story           `json:"story,omitempty"`
	StyledImagePath   string           `json:"styled_image_path,omitempty"`
	BaseImagePath     string           `json:"base_image_path,omitempty"`
	AspectRatio       string           `json:"aspect_ratio,omitempty"`
	RecordedAudioPath string           `json:"recorded_audio_path,omitempty"`
	SceneAssets       []SceneAsset     `json:"scene_assets,omitempty"`
	MoviePath         string           `json:"movie_path,omitempty"`
	Generated         bool             `json:"generated,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Dir returns the session's output directory.
func (s *Session) Dir() string {
	return filepath.Dir(s.OriginalImagePath)
}

// LineageBase returns the image anchoring the scene-edit chain: the styled
// image when one exists, otherwise the current base (the original unless
// use-styled-as-base moved it).
func (s *Session) LineageBase() string {
	if s.StyledImagePath != "" {
		return s.StyledImagePath
	}
	if s.BaseImagePath != "" {
		return s.BaseImagePath
	}
	return s.OriginalImagePath
}
