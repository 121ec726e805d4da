package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
	"github.com/krishnaadithya/movie-gen/store"
)

var (
	// ErrRunActive rejects a trigger while a run for the same session is
	// still in flight. At most one run per session may be active.
	ErrRunActive = errors.New("asset generation already running for this session")

	// ErrNoStory rejects a trigger for a session that has no story yet.
	ErrNoStory = errors.New("session has no story to generate assets for")
)

// Runner executes asset-generation runs in the background. Each triggered run
// walks the session's scenes strictly in order, producing one audio clip and
// one image per scene with per-scene fallback substitution, and reports
// progress through the status register.
type Runner struct {
	sessions store.Sessions
	statuses store.Statuses
	gw       gateway.Gateway

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(sessions store.Sessions, statuses store.Statuses, gw gateway.Gateway) *Runner {
	return &Runner{
		sessions: sessions,
		statuses: statuses,
		gw:       gw,
		active:   make(map[string]context.CancelFunc),
	}
}

// Trigger starts a background run for the session and returns immediately.
// The RUNNING status is written before Trigger returns, so a poll issued
// right after the ack already sees it. Errors are returned only for
// conditions detectable synchronously: unknown session, missing story, or a
// run already in flight.
func (r *Runner) Trigger(sessionID string) error {
	sess, err := r.sessions.Get(context.Background(), sessionID)
	if err != nil {
		return err
	}
	if sess.Story == nil || len(sess.Story.Scenes) == 0 {
		return ErrNoStory
	}

	r.mu.Lock()
	if _, running := r.active[sessionID]; running {
		r.mu.Unlock()
		return ErrRunActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.active[sessionID] = cancel
	r.mu.Unlock()

	total := len(sess.Story.Scenes)
	if err := r.statuses.Set(context.Background(), sessionID, models.GenerationStatus{
		Status:      models.StatusRunning,
		TotalScenes: total,
	}); err != nil {
		r.release(sessionID)
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release(sessionID)
		r.run(ctx, sess)
	}()

	return nil
}

// Cancel stops an active run for the session. The run observes the
// cancellation between scenes. Cancelling an idle session is a no-op.
func (r *Runner) Cancel(sessionID string) {
	r.mu.Lock()
	cancel, ok := r.active[sessionID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until all in-flight runs finish. Used on shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) release(sessionID string) {
	r.mu.Lock()
	if cancel, ok := r.active[sessionID]; ok {
		cancel()
		delete(r.active, sessionID)
	}
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context, sess *models.Session) {
	log.Printf("[worker] starting asset generation for session %s (%d scenes)", sess.ID, len(sess.Story.Scenes))

	assets, err := r.generateAssets(ctx, sess)
	total := len(sess.Story.Scenes)

	if err != nil {
		log.Printf("[worker] asset generation failed for session %s: %v", sess.ID, err)
		r.setStatus(sess.ID, models.GenerationStatus{
			Status:          models.StatusFailed,
			Completed:       true,
			Error:           fmt.Sprintf("Asset generation failed: %v", err),
			ScenesCompleted: len(assets),
			TotalScenes:     total,
		})
		return
	}

	// a fresh run's assets fully replace any earlier list
	if _, err := r.sessions.Update(context.Background(), sess.ID, func(s *models.Session) error {
		s.SceneAssets = assets
		return nil
	}); err != nil {
		log.Printf("[worker] storing assets failed for session %s: %v", sess.ID, err)
		r.setStatus(sess.ID, models.GenerationStatus{
			Status:          models.StatusFailed,
			Completed:       true,
			Error:           fmt.Sprintf("Asset generation failed: %v", err),
			ScenesCompleted: len(assets),
			TotalScenes:     total,
		})
		return
	}

	r.setStatus(sess.ID, models.GenerationStatus{
		Status:          models.StatusCompleted,
		Completed:       true,
		ScenesCompleted: total,
		TotalScenes:     total,
	})
	log.Printf("[worker] asset generation completed for session %s", sess.ID)
}

// generateAssets walks the scenes left to right. The image-edit chain is
// anchored at the session's lineage base; each successful edit becomes the
// next scene's base so style and character compound across the sequence.
// Audio and image failures never abort the run: the scene gets 1 s of
// silence and a reused frame instead, keeping the scene/asset lists 1:1.
func (r *Runner) generateAssets(ctx context.Context, sess *models.Session) ([]models.SceneAsset, error) {
	dir := sess.Dir()
	currentImage := sess.LineageBase()
	aspectRatio := sess.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}

	total := len(sess.Story.Scenes)
	assets := make([]models.SceneAsset, 0, total)

	for i, scene := range sess.Story.Scenes {
		select {
		case <-ctx.Done():
			return assets, ctx.Err()
		default:
		}

		log.Printf("[worker] session %s: scene %d/%d: %s", sess.ID, i+1, total, scene.Heading)

		audioPath := filepath.Join(dir, fmt.Sprintf("scene_%d_audio.wav", i))
		if err := r.sceneAudio(ctx, scene.Text, sess.RecordedAudioPath, audioPath); err != nil {
			log.Printf("[worker] session %s: scene %d audio failed: %v; writing silent placeholder", sess.ID, i, err)
			if werr := WriteSilenceWAV(audioPath); werr != nil {
				return assets, fmt.Errorf("scene %d: silence fallback: %w", i, werr)
			}
		}

		imagePath := filepath.Join(dir, fmt.Sprintf("scene_%d_image.jpeg", i))
		if err := r.sceneImage(ctx, currentImage, scene.ImagePrompt, aspectRatio, imagePath); err != nil {
			log.Printf("[worker] session %s: scene %d image failed: %v; reusing previous frame", sess.ID, i, err)
			if cerr := copyFile(currentImage, imagePath); cerr != nil {
				return assets, fmt.Errorf("scene %d: image fallback: %w", i, cerr)
			}
			// base image unchanged: the chain continues from the last success
		} else {
			currentImage = imagePath
		}

		assets = append(assets, models.SceneAsset{
			SceneID:   i,
			ImagePath: imagePath,
			AudioPath: audioPath,
		})

		r.setStatus(sess.ID, models.GenerationStatus{
			Status:          models.StatusRunning,
			ScenesCompleted: i + 1,
			TotalScenes:     total,
		})
	}

	return assets, nil
}

func (r *Runner) sceneAudio(ctx context.Context, text, voicePath, dest string) error {
	url, err := r.gw.GenerateAudio(ctx, text, voicePath)
	if err != nil {
		return err
	}
	return r.gw.FetchToFile(ctx, url, dest)
}

func (r *Runner) sceneImage(ctx context.Context, basePath, prompt, aspectRatio, dest string) error {
	base, err := os.ReadFile(basePath)
	if err != nil {
		return fmt.Errorf("read base image: %w", err)
	}
	edited, err := r.gw.EditImage(ctx, base, prompt, aspectRatio)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, edited, 0644)
}

func (r *Runner) setStatus(sessionID string, st models.GenerationStatus) {
	if err := r.statuses.Set(context.Background(), sessionID, st); err != nil {
		log.Printf("[worker] status write failed for session %s: %v", sessionID, err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
