package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/krishnaadithya/movie-gen/assemble"
	"github.com/krishnaadithya/movie-gen/config"
	"github.com/krishnaadithya/movie-gen/gateway"
	"github.com/krishnaadithya/movie-gen/internal/platform"
	"github.com/krishnaadithya/movie-gen/movies"
	"github.com/krishnaadithya/movie-gen/sessions"
	"github.com/krishnaadithya/movie-gen/store"
	"github.com/krishnaadithya/movie-gen/stories"
	"github.com/krishnaadithya/movie-gen/worker"
)

type Server struct {
	Config   *config.Config
	Sessions store.Sessions
	Statuses store.Statuses
	Gateway  gateway.Gateway
	Runner   *worker.Runner
	Router   *gin.Engine
	Cron     *cron.Cron
}

func NewServer() (*Server, error) {
	platform.LoadEnv()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Paths.Output, 0755); err != nil {
		return nil, err
	}

	sessionStore, statusStore := platform.NewStores(cfg)

	gw := gateway.NewClient(gateway.Config{
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.Providers.OpenAIModel,
		FluxAPIKey:      cfg.FluxAPIKey,
		FluxBaseURL:     cfg.Providers.FluxBaseURL,
		ReplicateAPIKey: cfg.ReplicateAPIKey,
		ReplicateBase:   cfg.Providers.ReplicateBaseURL,
		PollInterval:    cfg.PollInterval(),
		MaxPollAttempts: cfg.Providers.MaxPollAttempts,
	})

	runner := worker.NewRunner(sessionStore, statusStore, gw)

	router := gin.Default()

	// CORS middleware for the frontend
	frontendURL := cfg.Server.FrontendURL
	if frontendURL == "" {
		frontendURL = "*"
	}
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", frontendURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &Server{
		Config:   cfg,
		Sessions: sessionStore,
		Statuses: statusStore,
		Gateway:  gw,
		Runner:   runner,
		Router:   router,
		Cron:     cron.New(),
	}

	server.setupRoutes()
	server.scheduleJanitor()

	return server, nil
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Movie Generator API v1"})
	})

	sessionHandler := sessions.NewHandler(s.Sessions, s.Gateway, s.Config.Paths.Output)
	storyHandler := stories.NewHandler(s.Sessions, s.Gateway)
	movieHandler := movies.NewHandler(s.Sessions, s.Statuses, s.Runner, s.Gateway, assemble.New())

	s.Router.POST("/upload-image/", sessionHandler.UploadImage)
	s.Router.POST("/generate-image/", sessionHandler.GenerateImage)
	s.Router.POST("/upload-audio/", sessionHandler.UploadAudio)
	s.Router.POST("/use-styled-as-base/", sessionHandler.UseStyledAsBase)
	s.Router.GET("/download/:session_id/:filename", sessionHandler.Download)

	s.Router.POST("/generate-story/", storyHandler.GenerateStory)
	s.Router.PUT("/update-story/", storyHandler.UpdateStory)

	s.Router.POST("/generate-assets/", movieHandler.GenerateAssets)
	s.Router.GET("/generation-status/:session_id", movieHandler.GenerationStatus)
	s.Router.POST("/generate-movie/", movieHandler.GenerateMovie)
}

// scheduleJanitor evicts idle sessions and removes their output directories.
// With the Redis backend key expiry handles store eviction, so the sweep is
// only wired for the in-memory store.
func (s *Server) scheduleJanitor() {
	memory, ok := s.Sessions.(*store.MemorySessions)
	if !ok {
		return
	}
	memoryStatuses, _ := s.Statuses.(*store.MemoryStatuses)

	ttl := s.Config.SessionTTL()
	outputDir := s.Config.Paths.Output

	_, err := s.Cron.AddFunc(s.Config.Sessions.SweepSchedule, func() {
		evicted := memory.EvictExpired(ttl)
		if len(evicted) == 0 {
			return
		}
		if memoryStatuses != nil {
			memoryStatuses.Delete(context.Background(), evicted...)
		}
		for _, id := range evicted {
			if err := os.RemoveAll(filepath.Join(outputDir, id)); err != nil {
				log.Printf("Error removing session dir %s: %v", id, err)
			}
		}
		log.Printf("Janitor evicted %d idle session(s)", len(evicted))
	})
	if err != nil {
		log.Printf("Error scheduling session janitor: %v", err)
	}
}

func (s *Server) Run() error {
	s.Cron.Start()
	defer s.Cron.Stop()

	srv := &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: s.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", s.Config.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// let in-flight asset runs finish writing their terminal status
	s.Runner.Wait()
	return nil
}

func main() {
	server, err := NewServer()
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}

	if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to run server:", err)
	}
}
