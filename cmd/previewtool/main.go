// Command previewtool renders a short audio buffer for a single
// scheduled note through a SoundFont, exercising the go-meltysynth
// dependency the core otherwise leaves unused (the core's Supervisor
// is a subprocess-protocol contract, not a renderer, per spec.md's
// non-goals). Useful for smoke-testing a SoundFont file, or for
// rendering a preview in environments where the sampler subprocess
// from pkg/supervisor is unavailable.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

const sampleRate = 44100

func main() {
	soundFontPath := flag.String("soundfont", "", "path to a .sf2 SoundFont file")
	pitch := flag.Int("pitch", 60, "MIDI pitch to preview")
	seconds := flag.Float64("seconds", 1.0, "length of the rendered preview, in seconds")
	out := flag.String("out", "preview.pcm", "output path for raw 16-bit stereo PCM")
	flag.Parse()

	if *soundFontPath == "" {
		fmt.Fprintln(os.Stderr, "usage: previewtool -soundfont <path.sf2> [-pitch 60] [-seconds 1.0] [-out preview.pcm]")
		os.Exit(2)
	}

	if err := run(*soundFontPath, *pitch, *seconds, *out); err != nil {
		fmt.Fprintln(os.Stderr, "previewtool:", err)
		os.Exit(1)
	}
}

func run(soundFontPath string, pitch int, seconds float64, outPath string) error {
	sfFile, err := os.Open(soundFontPath)
	if err != nil {
		return fmt.Errorf("opening soundfont: %w", err)
	}
	defer sfFile.Close()

	soundFont, err := meltysynth.NewSoundFont(sfFile)
	if err != nil {
		return fmt.Errorf("parsing soundfont: %w", err)
	}

	settings := meltysynth.NewSynthesizerSettings(sampleRate)
	synth, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}

	noteOn := midiwire.NoteOn(0, byte(pitch), 100)
	synth.ProcessMidiMessage(int32(noteOn.Channel()), int32(noteOn.Kind()), int32(noteOn.Data1), int32(noteOn.Data2))

	frames := int(seconds * sampleRate)
	left := make([]float32, frames)
	right := make([]float32, frames)
	synth.Render(left, right)

	noteOff := midiwire.NoteOff(0, byte(pitch))
	synth.ProcessMidiMessage(int32(noteOff.Channel()), int32(noteOff.Kind()), int32(noteOff.Data1), int32(noteOff.Data2))

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 4)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(buf[0:2], uint16(int16(left[i]*32767)))
		binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(right[i]*32767)))
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("writing pcm: %w", err)
		}
	}
	return nil
}
