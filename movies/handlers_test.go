package movies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/krishnaadithya/movie-gen/assemble"
	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/models"
	"github.com/krishnaadithya/movie-gen/store"
	"github.com/krishnaadithya/movie-gen/worker"
)

type fakeGateway struct {
	mu         sync.Mutex
	audioBlock chan struct{}
}

func (f *fakeGateway) GenerateText(ctx context.Context, req gateway.TextRequest) (string, error) {
	return "", nil
}

func (f *fakeGateway) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	return []byte("generated"), nil
}

func (f *fakeGateway) EditImage(ctx context.Context, baseImage []byte, prompt, aspectRatio string) ([]byte, error) {
	return []byte("edited"), nil
}

func (f *fakeGateway) GenerateAudio(ctx context.Context, text, voicePath string) (string, error) {
	f.mu.Lock()
	block := f.audioBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return "http://provider/audio", nil
}

func (f *fakeGateway) GenerateVideo(ctx context.Context, startImagePath, prompt string) (string, error) {
	return "http://provider/video", nil
}

func (f *fakeGateway) FetchToFile(ctx context.Context, url, dest string) error {
	return os.WriteFile(dest, []byte("fetched"), 0644)
}

type testEnv struct {
	router   *gin.Engine
	sessions *store.MemorySessions
	statuses *store.MemoryStatuses
	runner   *worker.Runner
	gw       *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := store.NewMemorySessions()
	statuses := store.NewMemoryStatuses()
	gw := &fakeGateway{}
	runner := worker.NewRunner(sessions, statuses, gw)
	h := NewHandler(sessions, statuses, runner, gw, assemble.New())

	r := gin.New()
	r.POST("/generate-assets/", h.GenerateAssets)
	r.GET("/generation-status/:session_id", h.GenerationStatus)
	r.POST("/generate-movie/", h.GenerateMovie)

	return &testEnv{router: r, sessions: sessions, statuses: statuses, runner: runner, gw: gw}
}

func seedSession(t *testing.T, env *testEnv, scenes int) *models.Session {
	t.Helper()

	dir := t.TempDir()
	imagePath := filepath.Join(dir, "original_image.jpeg")
	if err := os.WriteFile(imagePath, []byte("jpeg"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	session := &models.Session{
		ID:                "sess-1",
		OriginalImagePath: imagePath,
		AspectRatio:       "16:9",
	}
	if scenes > 0 {
		story := &models.Story{Title: "t", AgeGroup: "a", Genre: "g", Tone: "o"}
		for i := 0; i < scenes; i++ {
			story.Scenes = append(story.Scenes, models.StoryScene{
				SceneID:     i + 1,
				Heading:     "h",
				Text:        "scene text",
				ImagePrompt: "show it",
			})
		}
		session.Story = story
	}
	if err := env.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func formRequest(target string, fields map[string]string) *http.Request {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGenerateAssets(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env, 2)

	req := formRequest("/generate-assets/", map[string]string{"session_id": "sess-1"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	env.runner.Wait()

	session, _ := env.sessions.Get(context.Background(), "sess-1")
	if len(session.SceneAssets) != 2 {
		t.Errorf("scene assets = %d, want 2", len(session.SceneAssets))
	}

	st, _ := env.statuses.Get(context.Background(), "sess-1")
	if st.Status != models.StatusCompleted {
		t.Errorf("final status = %+v", st)
	}
}

func TestGenerateAssets_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	req := formRequest("/generate-assets/", map[string]string{"session_id": "nope"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateAssets_NoStory(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env, 0)

	req := formRequest("/generate-assets/", map[string]string{"session_id": "sess-1"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateAssets_AlreadyRunning(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env, 1)
	env.gw.audioBlock = make(chan struct{})

	first := httptest.NewRecorder()
	env.router.ServeHTTP(first, formRequest("/generate-assets/", map[string]string{"session_id": "sess-1"}))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	env.router.ServeHTTP(second, formRequest("/generate-assets/", map[string]string{"session_id": "sess-1"}))
	if second.Code != http.StatusConflict {
		t.Errorf("second status = %d, want 409", second.Code)
	}

	close(env.gw.audioBlock)
	env.runner.Wait()
}

func TestGenerateAssets_StoresAudioPath(t *testing.T) {
	env := newTestEnv(t)
	session := seedSession(t, env, 1)

	voicePath := filepath.Join(session.Dir(), "recorded_voice.wav")
	req := formRequest("/generate-assets/", map[string]string{
		"session_id": "sess-1",
		"audio_path": voicePath,
	})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	env.runner.Wait()

	got, _ := env.sessions.Get(context.Background(), "sess-1")
	if got.RecordedAudioPath != voicePath {
		t.Errorf("recorded audio path = %q, want %q", got.RecordedAudioPath, voicePath)
	}
}

func TestGenerationStatus_DefaultNotStarted(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/generation-status/never-seen", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var st models.GenerationStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != models.StatusNotStarted || st.Completed {
		t.Errorf("status = %+v, want not started", st)
	}
}

func TestGenerationStatus_AfterRun(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env, 2)

	trigger := httptest.NewRecorder()
	env.router.ServeHTTP(trigger, formRequest("/generate-assets/", map[string]string{"session_id": "sess-1"}))
	if trigger.Code != http.StatusAccepted {
		t.Fatalf("trigger status = %d", trigger.Code)
	}
	env.runner.Wait()

	req := httptest.NewRequest(http.MethodGet, "/generation-status/sess-1", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var st models.GenerationStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != models.StatusCompleted || !st.Completed {
		t.Errorf("status = %+v, want completed", st)
	}
	if st.ScenesCompleted != 2 || st.TotalScenes != 2 {
		t.Errorf("progress = %d/%d, want 2/2", st.ScenesCompleted, st.TotalScenes)
	}
}

func jsonRequest(t *testing.T, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGenerateMovie_MissingSessionID(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, "/generate-movie/", map[string]interface{}{})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateMovie_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, "/generate-movie/", map[string]interface{}{"session_id": "nope"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateMovie_NoAssets(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env, 2)

	req := jsonRequest(t, "/generate-movie/", map[string]interface{}{"session_id": "sess-1"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateMovie_VideoModeRequiresMatchingAssets(t *testing.T) {
	env := newTestEnv(t)
	session := seedSession(t, env, 3)

	// assets from an older, shorter story
	if _, err := env.sessions.Update(context.Background(), session.ID, func(s *models.Session) error {
		s.SceneAssets = []models.SceneAsset{
			{SceneID: 0, ImagePath: "a.jpeg", AudioPath: "a.wav"},
		}
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	req := jsonRequest(t, "/generate-movie/", map[string]interface{}{
		"session_id":          "sess-1",
		"use_video_generator": true,
	})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
