// Package audio stages uploaded audio and converts it into the WAV format the
// speech backend expects: 16 kHz, mono, 16-bit PCM.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
)

const (
	TargetSampleRate = 16000
	TargetChannels   = 1
	TargetBitDepth   = 16
)

// Converter transcodes audio files with an external ffmpeg binary. The
// command is configurable so deployments can point at a wrapper script.
type Converter struct {
	cmd []string
}

func NewConverter(command string) (*Converter, error) {
	if command == "" {
		command = "ffmpeg"
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ffmpeg command is empty")
	}
	return &Converter{cmd: args}, nil
}

// Available reports whether the conversion binary is on PATH.
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.cmd[0])
	return err == nil
}

// Convert transcodes input into a 16 kHz mono PCM16 WAV at output.
func (c *Converter) Convert(ctx context.Context, input, output string) error {
	args := append([]string{}, c.cmd[1:]...)
	args = append(args,
		"-y", "-i", input,
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"-ac", fmt.Sprintf("%d", TargetChannels),
		"-sample_fmt", "s16",
		"-f", "wav",
		output,
	)
	command := exec.CommandContext(ctx, c.cmd[0], args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return fmt.Errorf("convert audio: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// IsCompliantWAV reports whether path already holds audio in the target
// format, in which case conversion can be skipped.
func IsCompliantWAV(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return false
	}
	return dec.SampleRate == TargetSampleRate &&
		int(dec.NumChans) == TargetChannels &&
		int(dec.BitDepth) == TargetBitDepth
}

// Stage writes an upload to a temp file, preserving the upload's extension so
// ffmpeg can sniff the container format. The caller removes the file.
func Stage(filename string, r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "accent_upload_*"+Ext(filename))
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return f.Name(), nil
}

// Ext extracts a lower-cased file extension, defaulting to .wav.
func Ext(filename string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	return ".wav"
}
