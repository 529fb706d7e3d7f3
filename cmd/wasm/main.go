//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"fmt"
	"os"
	"syscall/js"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorDecodeFailed
)

var wasmLog = logger.New(logger.Config{
	Level:    logger.WARN,
	Prefix:   "[slowscan] ",
	Colorize: false,
	Output:   os.Stdout,
})

// decodeSSTV decodes audio samples into an image.
// Args: audioArray, sampleRate[, channels]
// Returns: {error: number, data: object | string}
//
// On success, and on a decode that stopped part way through an image,
// data carries mode, status, reason, width, height, degradedLines, snr and
// pixels (RGBA, ready for ImageData).
func decodeSSTV(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: audioArray, sampleRate[, channels]")
	}

	audioDataJS := args[0]
	sampleRateJS := args[1]

	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array, Float32Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}

	channels := 1
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		channels = args[2].Int()
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}

	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		samples[i] = audioDataJS.Index(i).Float()
	}
	if channels == 2 {
		samples = stereoToMono(samples)
	}

	res, err := sstv.Decode(context.Background(), samples,
		sstv.WithSampleRate(sampleRateJS.Float()),
		sstv.WithBandpass(true),
		sstv.WithLogger(wasmLog),
	)
	if res == nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if res.Image == nil {
		return makeErrorResponse(ErrorDecodeFailed, err.Error())
	}

	data := js.Global().Get("Object").New()
	data.Set("mode", res.ModeName())
	data.Set("vis", int(res.VIS))
	data.Set("status", res.Status.String())
	data.Set("reason", res.Reason.String())
	data.Set("width", res.Image.Width)
	data.Set("height", res.Image.Height)
	data.Set("snr", res.SNR)
	data.Set("clockSkewPpm", res.ClockSkewPPM)

	degraded := js.Global().Get("Array").New(len(res.DegradedLines))
	for i, l := range res.DegradedLines {
		degraded.SetIndex(i, l)
	}
	data.Set("degradedLines", degraded)

	rgba := res.Image.ToRGBA()
	pixels := js.Global().Get("Uint8ClampedArray").New(len(rgba.Pix))
	js.CopyBytesToJS(pixels, rgba.Pix)
	data.Set("pixels", pixels)

	if err != nil {
		data.Set("message", err.Error())
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 SlowScan WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("decodeSSTV", js.FuncOf(decodeSSTV))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ SlowScan WASM module loaded and ready")
	}

	<-done
}
