package stories

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
	"github.com/krishnaadithya/movie-gen/processing"
	"github.com/krishnaadithya/movie-gen/store"
)

type Handler struct {
	Store   store.Sessions
	Gateway gateway.Gateway
}

func NewHandler(st store.Sessions, gw gateway.Gateway) *Handler {
	return &Handler{Store: st, Gateway: gw}
}

// GenerateStory builds a multi-scene story from the session's image
// description and the user's prompt. An optional style instruction
// additionally produces a styled copy of the base image; the original stays
// untouched.
func (h *Handler) GenerateStory(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	storyPrompt := c.PostForm("story_prompt")
	stylePrompt := c.PostForm("style_prompt")
	aspectRatio := c.DefaultPostForm("aspect_ratio", "16:9")

	if storyPrompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story_prompt is required"})
		return
	}

	session, err := h.Store.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	story, err := processing.BuildStory(c.Request.Context(), h.Gateway, session.ImageDescription, storyPrompt)
	if err != nil {
		var parseErr *models.SchemaParseError
		if errors.As(err, &parseErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Story generation failed: %v", err)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Story generation failed: %v", err)})
		return
	}

	styledPath := ""
	if stylePrompt != "" {
		styled, err := processing.StyleImage(c.Request.Context(), h.Gateway, session.LineageBase(), stylePrompt, aspectRatio)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image styling failed: %v", err)})
			return
		}
		styledPath = filepath.Join(session.Dir(), "styled_image.jpeg")
		if err := os.WriteFile(styledPath, styled, 0644); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Image styling failed: %v", err)})
			return
		}
	}

	if _, err := h.Store.Update(c.Request.Context(), sessionID, func(s *models.Session) error {
		s.Story = story
		s.AspectRatio = aspectRatio
		if styledPath != "" {
			s.StyledImagePath = styledPath
		}
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Story generation failed: %v", err)})
		return
	}

	log.Printf("[stories] generated %d-scene story for session %s", len(story.Scenes), sessionID)
	c.JSON(http.StatusOK, gin.H{"story": story})
}

// UpdateStory replaces the session's story with a client-edited version. The
// replacement goes through the same strict validation as generated stories.
func (h *Handler) UpdateStory(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	storyJSON := c.PostForm("story")

	if storyJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story is required"})
		return
	}

	story, err := models.ParseStory(storyJSON)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Story update failed: %v", err)})
		return
	}

	if _, err := h.Store.Update(c.Request.Context(), sessionID, func(s *models.Session) error {
		s.Story = story
		return nil
	}); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Story update failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Story updated successfully",
		"story":   story,
	})
}
