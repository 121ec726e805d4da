package assemble

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClipDuration(t *testing.T) {
	tests := []struct {
		name     string
		videoDur float64
		audioDur float64
		want     float64
	}{
		{"audio shorter cuts the clip", 5.0, 3.2, 3.2},
		{"audio longer never stretches", 5.0, 8.0, 5.0},
		{"equal durations", 5.0, 5.0, 5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clipDuration(tt.videoDur, tt.audioDur); got != tt.want {
				t.Errorf("clipDuration(%v, %v) = %v, want %v", tt.videoDur, tt.audioDur, got, tt.want)
			}
		})
	}
}

func TestConcatListContents(t *testing.T) {
	got := concatListContents([]string{"/out/stitch_clip_00.mp4", "/out/stitch_clip_01.mp4"})
	want := "file '/out/stitch_clip_00.mp4'\nfile '/out/stitch_clip_01.mp4'\n"
	if got != want {
		t.Errorf("contents = %q, want %q", got, want)
	}
}

func TestConcatListContents_EscapesQuotes(t *testing.T) {
	got := concatListContents([]string{"/out/it's here/clip.mp4"})
	want := `file '/out/it'\''s here/clip.mp4'` + "\n"
	if got != want {
		t.Errorf("contents = %q, want %q", got, want)
	}
}

func TestSlideshowClipArgs(t *testing.T) {
	a := New()
	args := a.slideshowClipArgs("img.jpeg", "audio.wav", "clip.mp4", 3.5)

	joined := strings.Join(args, " ")
	for _, want := range []string{"-loop 1", "-t 3.500", "-c:v libx264", "-r 24", "-c:a aac"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "clip.mp4" {
		t.Errorf("output not last arg: %v", args)
	}
}

func TestVideoClipArgs(t *testing.T) {
	a := New()
	args := a.videoClipArgs("clip_in.mp4", "audio.wav", "clip.mp4", 4.0)

	joined := strings.Join(args, " ")
	for _, want := range []string{"-t 4.000", "-map 0:v:0", "-map 1:a:0"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if strings.Contains(joined, "-loop") {
		t.Errorf("video mode must not loop a still image: %s", joined)
	}
}

func TestParseProbeDuration(t *testing.T) {
	dur, err := parseProbeDuration("3.456000\n")
	if err != nil {
		t.Fatalf("parseProbeDuration error: %v", err)
	}
	if dur != 3.456 {
		t.Errorf("dur = %v, want 3.456", dur)
	}

	if _, err := parseProbeDuration("N/A\n"); err == nil {
		t.Error("expected error for non-numeric output")
	}
	if _, err := parseProbeDuration(""); err == nil {
		t.Error("expected error for empty output")
	}
}

func TestStitch_EmptyPairs(t *testing.T) {
	a := New()
	_, err := a.Slideshow(context.Background(), nil, t.TempDir())

	var aerr *AssemblyError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want AssemblyError", err)
	}
	if aerr.Stage != "input" {
		t.Errorf("Stage = %q, want input", aerr.Stage)
	}
}
