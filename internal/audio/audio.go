// Package audio shells out to ffmpeg for the two raw-audio operations
// the engine needs: slicing a window into a temporary mono wav for a
// backend call, and scanning a coarse energy profile for the chunk
// planner. No decoding happens in-process.
package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sampleRate = 16000

// Processor wraps the ffmpeg binary.
type Processor struct {
	ffmpegPath string
	tmpDir     string
}

// NewProcessor creates a processor using the given ffmpeg binary and
// temp directory. Empty arguments fall back to "ffmpeg" on PATH and
// the system temp dir.
func NewProcessor(ffmpegPath, tmpDir string) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Processor{ffmpegPath: ffmpegPath, tmpDir: tmpDir}
}

// Slice extracts [start, start+duration) seconds of src into a
// temporary mono 16kHz wav and returns its path with a cleanup
// function. Callers must invoke cleanup unconditionally, on success
// and failure alike; slices are never shared between workers.
func (p *Processor) Slice(ctx context.Context, src string, start, duration float64) (string, func(), error) {
	out := filepath.Join(p.tmpDir, fmt.Sprintf("slice-%s.wav", uuid.New().String()))
	cleanup := func() {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", out).Msg("Failed to remove audio slice")
		}
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-y", out,
	}
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	if raw, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("ffmpeg slice [%0.1f, %0.1f): %w: %s", start, start+duration, err, raw)
	}
	return out, cleanup, nil
}

// EnergyProfile decodes src to mono 16kHz PCM on a pipe and computes
// the RMS energy per window, normalized to [0,1] against the loudest
// window. It returns the profile and the recording duration in
// seconds. The stream is consumed incrementally so multi-hour audio
// never lands in memory.
func (p *Processor) EnergyProfile(ctx context.Context, src string, window float64) ([]float64, float64, error) {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, fmt.Errorf("ffmpeg pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg start: %w", err)
	}

	profile, samples, err := scanEnergy(bufio.NewReaderSize(stdout, 64*1024), window)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, 0, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg decode %s: %w", src, err)
	}

	return normalize(profile), float64(samples) / sampleRate, nil
}

// scanEnergy reads s16le samples and accumulates RMS per window.
func scanEnergy(r io.Reader, window float64) ([]float64, int64, error) {
	samplesPerWindow := int64(window * sampleRate)
	if samplesPerWindow <= 0 {
		samplesPerWindow = sampleRate
	}

	var (
		profile []float64
		sumSq   float64
		inWin   int64
		total   int64
		buf     = make([]byte, 8192)
		carry   byte
		half    bool
	)

	flush := func() {
		if inWin == 0 {
			return
		}
		profile = append(profile, math.Sqrt(sumSq/float64(inWin)))
		sumSq = 0
		inWin = 0
	}

	for {
		n, err := r.Read(buf)
		chunk := buf[:n]
		if half && n > 0 {
			s := int16(binary.LittleEndian.Uint16([]byte{carry, chunk[0]}))
			v := float64(s) / 32768
			sumSq += v * v
			inWin++
			total++
			if inWin == samplesPerWindow {
				flush()
			}
			chunk = chunk[1:]
			half = false
		}
		for len(chunk) >= 2 {
			s := int16(binary.LittleEndian.Uint16(chunk))
			v := float64(s) / 32768
			sumSq += v * v
			inWin++
			total++
			if inWin == samplesPerWindow {
				flush()
			}
			chunk = chunk[2:]
		}
		if len(chunk) == 1 {
			carry = chunk[0]
			half = true
		}
		if err == io.EOF {
			flush()
			return profile, total, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read pcm stream: %w", err)
		}
	}
}

func normalize(profile []float64) []float64 {
	peak := 0.0
	for _, e := range profile {
		if e > peak {
			peak = e
		}
	}
	if peak == 0 {
		return profile
	}
	out := make([]float64, len(profile))
	for i, e := range profile {
		out[i] = e / peak
	}
	return out
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
