package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/receiver/audio"
)

// handleSpectrogram renders a WAV recording's spectrogram, handy for
// checking where a transmission starts and whether it is mistuned.
func handleSpectrogram(args []string) {
	log := logger.GetLogger()

	specCmd := flag.NewFlagSet("spectrogram", flag.ExitOnError)
	outPath := specCmd.String("png", "", "Output PNG (default: <input>.png)")
	width := specCmd.Int("width", 2048, "Image width in pixels")
	height := specCmd.Int("height", 512, "Image height, one frequency bin per row")
	wavPath, rest := splitPositional(args)
	specCmd.Parse(rest)

	if wavPath == "" {
		fmt.Println("Usage: slowscan spectrogram <wav_file> [--png out.png]")
		os.Exit(1)
	}
	if *outPath == "" {
		*outPath = strings.TrimSuffix(wavPath, ".wav") + ".png"
	}

	in, err := audio.ReadWAV(wavPath, audio.ReadOptions{})
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", wavPath, err)
		os.Exit(1)
	}
	log.Infof("Read %d samples at %d Hz", len(in.Data), in.SampleRate)

	img := spectrogram.NewImage128(image.Rect(0, 0, *width, *height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, linear magnitude.
	spectrogram.Drawfft(
		img,
		in.Data,
		uint32(in.SampleRate),
		uint32(*height),
		false,
		false,
		true,
		false,
	)

	if err := spectrogram.SavePng(img, *outPath); err != nil {
		fmt.Printf("❌ Failed to save %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	fmt.Printf("✅ Saved spectrogram to %s\n", *outPath)
}
