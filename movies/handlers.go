package movies

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/krishnaadithya/movie-gen/assemble"
	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
	"github.com/krishnaadithya/movie-gen/store"
	"github.com/krishnaadithya/movie-gen/worker"
)

// videoGenLimit bounds concurrent video-generation calls (long-running,
// quota-sensitive).
const videoGenLimit = 2

type Handler struct {
	Sessions  store.Sessions
	Statuses  store.Statuses
	Runner    *worker.Runner
	Gateway   gateway.Gateway
	Assembler *assemble.Assembler
}

func NewHandler(sessions store.Sessions, statuses store.Statuses, runner *worker.Runner, gw gateway.Gateway, asm *assemble.Assembler) *Handler {
	return &Handler{Sessions: sessions, Statuses: statuses, Runner: runner, Gateway: gw, Assembler: asm}
}

// GenerateAssets triggers the background asset-generation run and returns
// immediately. The run's progress is observable via GenerationStatus.
func (h *Handler) GenerateAssets(c *gin.Context) {
	sessionID := c.PostForm("session_id")

	if audioPath := c.PostForm("audio_path"); audioPath != "" {
		if _, err := h.Sessions.Update(c.Request.Context(), sessionID, func(s *models.Session) error {
			s.RecordedAudioPath = audioPath
			return nil
		}); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Asset generation failed: %v", err)})
			return
		}
	}

	switch err := h.Runner.Trigger(sessionID); {
	case errors.Is(err, store.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, worker.ErrNoStory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Generate a story before generating assets"})
	case errors.Is(err, worker.ErrRunActive):
		c.JSON(http.StatusConflict, gin.H{"error": "Asset generation is already running for this session"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Asset generation failed: %v", err)})
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"message":    "Asset generation started. This may take a minute or two...",
			"session_id": sessionID,
		})
	}
}

// GenerationStatus reports the session's current run status. Sessions with
// no run yet report the not-started status.
func (h *Handler) GenerationStatus(c *gin.Context) {
	st, err := h.Statuses.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

type generateMovieRequest struct {
	SessionID         string `json:"session_id" binding:"required"`
	UseVideoGenerator bool   `json:"use_video_generator"`
}

// GenerateMovie stitches the session's scene assets into the final movie. In
// video mode each scene's image is first animated into a clip via the video
// provider.
func (h *Handler) GenerateMovie(c *gin.Context) {
	var req generateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.Sessions.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if len(session.SceneAssets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Generate scene assets before generating the movie"})
		return
	}

	pairs := make([]assemble.Pair, len(session.SceneAssets))
	for i, asset := range session.SceneAssets {
		pairs[i] = assemble.Pair{Visual: asset.ImagePath, Audio: asset.AudioPath}
	}

	var moviePath string
	if req.UseVideoGenerator {
		if session.Story == nil || len(session.Story.Scenes) != len(session.SceneAssets) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Scene assets do not match the current story"})
			return
		}
		videoPaths, err := h.generateSceneVideos(c, session)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Movie generation failed: %v", err)})
			return
		}
		for i := range pairs {
			pairs[i].Visual = videoPaths[i]
		}
		moviePath, err = h.Assembler.Video(c.Request.Context(), pairs, session.Dir())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Movie generation failed: %v", err)})
			return
		}
	} else {
		moviePath, err = h.Assembler.Slideshow(c.Request.Context(), pairs, session.Dir())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Movie generation failed: %v", err)})
			return
		}
	}

	if _, err := h.Sessions.Update(c.Request.Context(), req.SessionID, func(s *models.Session) error {
		s.MoviePath = moviePath
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Movie generation failed: %v", err)})
		return
	}

	log.Printf("[movies] movie ready for session %s: %s", req.SessionID, moviePath)
	c.JSON(http.StatusOK, gin.H{"movie_path": moviePath})
}

// generateSceneVideos animates every scene image into a clip. Calls run with
// bounded parallelism; results land in an index-addressed slice so order is
// preserved regardless of completion order.
func (h *Handler) generateSceneVideos(c *gin.Context, session *models.Session) ([]string, error) {
	videoPaths := make([]string, len(session.SceneAssets))

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(videoGenLimit)

	for i, asset := range session.SceneAssets {
		i, asset := i, asset
		scene := session.Story.Scenes[i]
		g.Go(func() error {
			url, err := h.Gateway.GenerateVideo(ctx, asset.ImagePath, scene.Text)
			if err != nil {
				return fmt.Errorf("scene %d: %w", i, err)
			}
			dest := filepath.Join(session.Dir(), fmt.Sprintf("scene_%d_video.mp4", i))
			if err := h.Gateway.FetchToFile(ctx, url, dest); err != nil {
				return fmt.Errorf("scene %d: %w", i, err)
			}
			videoPaths[i] = dest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return videoPaths, nil
}
