package assemble

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// AssemblyError wraps any encode/mux failure. No partial output survives a
// failed assembly.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly failed at %s: %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Pair is one scene's visual (static image or generated clip) and its audio.
type Pair struct {
	Visual string
	Audio  string
}

// Assembler stitches ordered (visual, audio) pairs into one movie file using
// the ffmpeg and ffprobe binaries.
type Assembler struct {
	FFmpeg  string
	FFprobe string
	FPS     int
}

func New() *Assembler {
	return &Assembler{FFmpeg: "ffmpeg", FFprobe: "ffprobe", FPS: 24}
}

// Slideshow holds each image static for its audio's duration, attaches the
// audio, and concatenates the clips in input order.
func (a *Assembler) Slideshow(ctx context.Context, pairs []Pair, outDir string) (string, error) {
	return a.stitch(ctx, pairs, outDir, "final_slideshow_movie.mp4", false)
}

// Video trims each clip to its audio's duration when the audio is shorter;
// otherwise the clip keeps its own duration with the audio attached. Audio
// never stretches video.
func (a *Assembler) Video(ctx context.Context, pairs []Pair, outDir string) (string, error) {
	return a.stitch(ctx, pairs, outDir, "final_video_movie.mp4", true)
}

func (a *Assembler) stitch(ctx context.Context, pairs []Pair, outDir, outName string, videoMode bool) (string, error) {
	if len(pairs) == 0 {
		return "", &AssemblyError{Stage: "input", Err: fmt.Errorf("no scene pairs to stitch")}
	}

	outPath := filepath.Join(outDir, outName)
	var intermediates []string
	cleanup := func() {
		for _, f := range intermediates {
			os.Remove(f)
		}
	}
	fail := func(stage string, err error) (string, error) {
		cleanup()
		os.Remove(outPath)
		return "", &AssemblyError{Stage: stage, Err: err}
	}

	clipPaths := make([]string, 0, len(pairs))
	for i, pair := range pairs {
		audioDur, err := a.probeDuration(ctx, pair.Audio)
		if err != nil {
			return fail(fmt.Sprintf("probe scene %d audio", i), err)
		}

		clip := filepath.Join(outDir, fmt.Sprintf("stitch_clip_%02d.mp4", i))
		var args []string
		if videoMode {
			videoDur, err := a.probeDuration(ctx, pair.Visual)
			if err != nil {
				return fail(fmt.Sprintf("probe scene %d video", i), err)
			}
			args = a.videoClipArgs(pair.Visual, pair.Audio, clip, clipDuration(videoDur, audioDur))
		} else {
			args = a.slideshowClipArgs(pair.Visual, pair.Audio, clip, audioDur)
		}

		if err := a.runFFmpeg(ctx, args); err != nil {
			return fail(fmt.Sprintf("encode scene %d clip", i), err)
		}
		intermediates = append(intermediates, clip)
		clipPaths = append(clipPaths, clip)
	}

	listFile := filepath.Join(outDir, "stitch_concat.txt")
	if err := os.WriteFile(listFile, []byte(concatListContents(clipPaths)), 0644); err != nil {
		return fail("write concat list", err)
	}
	intermediates = append(intermediates, listFile)

	if err := a.runFFmpeg(ctx, a.concatArgs(listFile, outPath)); err != nil {
		return fail("concatenate clips", err)
	}

	cleanup()
	log.Printf("[assemble] movie ready: %s", outPath)
	return outPath, nil
}

// clipDuration applies the video-mode reconciliation policy: the clip is cut
// to the audio when the audio is shorter, otherwise it keeps its own length.
func clipDuration(videoDur, audioDur float64) float64 {
	if audioDur < videoDur {
		return audioDur
	}
	return videoDur
}

func (a *Assembler) slideshowClipArgs(image, audio, out string, dur float64) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", image,
		"-i", audio,
		"-t", formatDuration(dur),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2,setsar=1",
		"-r", fmt.Sprintf("%d", a.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		out,
	}
}

func (a *Assembler) videoClipArgs(video, audio, out string, dur float64) []string {
	return []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-t", formatDuration(dur),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", fmt.Sprintf("%d", a.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		out,
	}
}

func (a *Assembler) concatArgs(listFile, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		out,
	}
}

// concatListContents builds the ffmpeg concat-demuxer file. Single quotes in
// paths are escaped per the demuxer's quoting rules.
func concatListContents(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return b.String()
}

func formatDuration(dur float64) string {
	return fmt.Sprintf("%.3f", dur)
}

func (a *Assembler) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, a.FFmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", strings.Join(args, " "), err, tail(stderr.String(), 400))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
