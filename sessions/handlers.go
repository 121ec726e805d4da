package sessions

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
	"github.com/krishnaadithya/movie-gen/processing"
	"github.com/krishnaadithya/movie-gen/store"
)

type Handler struct {
	Store     store.Sessions
	Gateway   gateway.Gateway
	OutputDir string
}

func NewHandler(st store.Sessions, gw gateway.Gateway, outputDir string) *Handler {
	return &Handler{Store: st, Gateway: gw, OutputDir: outputDir}
}

// UploadImage saves the uploaded image, analyzes it, and opens a session.
func (h *Handler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	sessionID := uuid.NewString()
	dir := filepath.Join(h.OutputDir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image upload failed: %v", err)})
		return
	}

	imagePath := filepath.Join(dir, "original_image.jpeg")
	if err := c.SaveUploadedFile(file, imagePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image upload failed: %v", err)})
		return
	}

	desc, err := processing.DescribeImage(c.Request.Context(), h.Gateway, imagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image analysis failed: %v", err)})
		return
	}

	session := &models.Session{
		ID:                sessionID,
		OriginalImagePath: imagePath,
		ImageDescription:  desc,
		AspectRatio:       "16:9",
		CreatedAt:         time.Now(),
	}
	if err := h.Store.Create(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image upload failed: %v", err)})
		return
	}

	log.Printf("[sessions] created session %s from upload", sessionID)
	c.JSON(http.StatusOK, gin.H{
		"session_id":        sessionID,
		"image_description": desc,
	})
}

// GenerateImage opens a session from a text-to-image generation instead of
// an upload. The description is synthesized so downstream pipelines see the
// same shape either way.
func (h *Handler) GenerateImage(c *gin.Context) {
	prompt := c.PostForm("prompt")
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	aspectRatio := c.DefaultPostForm("aspect_ratio", "16:9")

	image, err := h.Gateway.GenerateImage(c.Request.Context(), prompt, aspectRatio)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image generation failed: %v", err)})
		return
	}

	sessionID := uuid.NewString()
	dir := filepath.Join(h.OutputDir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image generation failed: %v", err)})
		return
	}

	imagePath := filepath.Join(dir, "original_image.jpeg")
	if err := os.WriteFile(imagePath, image, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image generation failed: %v", err)})
		return
	}

	session := &models.Session{
		ID:                sessionID,
		OriginalImagePath: imagePath,
		ImageDescription: models.ImageDescription{
			Subject:          "Generated image",
			ImageDescription: fmt.Sprintf("A generated image of: %s", prompt),
		},
		AspectRatio: aspectRatio,
		Generated:   true,
		CreatedAt:   time.Now(),
	}
	if err := h.Store.Create(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image generation failed: %v", err)})
		return
	}

	log.Printf("[sessions] created session %s from text-to-image", sessionID)
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"image_url":  fmt.Sprintf("/download/%s/original_image.jpeg", sessionID),
		"message":    "Image generated successfully",
	})
}

// UploadAudio stores a recorded voice sample used as the narration voice
// reference.
func (h *Handler) UploadAudio(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	session, err := h.Store.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}

	audioPath := filepath.Join(session.Dir(), "recorded_voice.wav")
	if err := c.SaveUploadedFile(file, audioPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Audio upload failed: %v", err)})
		return
	}

	if _, err := h.Store.Update(c.Request.Context(), sessionID, func(s *models.Session) error {
		s.RecordedAudioPath = audioPath
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Audio upload failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Audio uploaded successfully",
		"audio_path": audioPath,
	})
}

// UseStyledAsBase promotes the styled image to the session's base image.
func (h *Handler) UseStyledAsBase(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	session, err := h.Store.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if session.StyledImagePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Styled image not found"})
		return
	}
	if _, err := os.Stat(session.StyledImagePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Styled image not found"})
		return
	}

	if _, err := h.Store.Update(c.Request.Context(), sessionID, func(s *models.Session) error {
		s.BaseImagePath = s.StyledImagePath
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to set styled image as base: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Styled image is now set as base for further editing"})
}

// Download serves a generated file from a session's output directory.
func (h *Handler) Download(c *gin.Context) {
	sessionID := c.Param("session_id")
	filename := c.Param("filename")

	session, err := h.Store.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	path := filepath.Join(session.Dir(), filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.FileAttachment(path, filename)
}
