package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels, bitDepth int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, sampleRate/100*channels),
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestIsCompliantWAV(t *testing.T) {
	dir := t.TempDir()

	compliant := filepath.Join(dir, "ok.wav")
	writeTestWAV(t, compliant, 16000, 1, 16)
	if !IsCompliantWAV(compliant) {
		t.Fatal("expected 16kHz mono PCM16 wav to be compliant")
	}

	wrongRate := filepath.Join(dir, "44k.wav")
	writeTestWAV(t, wrongRate, 44100, 1, 16)
	if IsCompliantWAV(wrongRate) {
		t.Fatal("44.1kHz wav must not be compliant")
	}

	stereo := filepath.Join(dir, "stereo.wav")
	writeTestWAV(t, stereo, 16000, 2, 16)
	if IsCompliantWAV(stereo) {
		t.Fatal("stereo wav must not be compliant")
	}

	garbage := filepath.Join(dir, "noise.wav")
	if err := os.WriteFile(garbage, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if IsCompliantWAV(garbage) {
		t.Fatal("garbage must not be compliant")
	}

	if IsCompliantWAV(filepath.Join(dir, "missing.wav")) {
		t.Fatal("missing file must not be compliant")
	}
}

func TestStagePreservesExtension(t *testing.T) {
	path, err := Stage("clip.WebM", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })

	if !strings.HasSuffix(path, ".webm") {
		t.Fatalf("expected .webm suffix, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected staged content %q", data)
	}
}

func TestExt(t *testing.T) {
	cases := map[string]string{
		"a.wav":   ".wav",
		"a.MP3":   ".mp3",
		"a.b.ogg": ".ogg",
		"noext":   ".wav",
		"":        ".wav",
	}
	for in, want := range cases {
		if got := Ext(in); got != want {
			t.Fatalf("Ext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewConverter(t *testing.T) {
	if _, err := NewConverter(""); err != nil {
		t.Fatalf("default command: %v", err)
	}
	c, err := NewConverter("/usr/local/bin/ffmpeg -loglevel error")
	if err != nil {
		t.Fatalf("custom command: %v", err)
	}
	if c.cmd[0] != "/usr/local/bin/ffmpeg" || c.cmd[1] != "-loglevel" {
		t.Fatalf("command not parsed: %v", c.cmd)
	}
	if _, err := NewConverter("'unbalanced"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConverterAvailable(t *testing.T) {
	c, err := NewConverter("definitely-not-a-real-binary-name")
	if err != nil {
		t.Fatalf("new converter: %v", err)
	}
	if c.Available() {
		t.Fatal("nonexistent binary must not be available")
	}
}
