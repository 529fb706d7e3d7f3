package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/models"
	"github.com/himanishpuri/SlowScan/pkg/receiver"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
)

// Global flags
var (
	dbPath      string
	tempDir     string
	outDir      string
	profilePath string
	sampleRate  int
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SLOWSCAN_DB_PATH", "slowscan.sqlite3"), "Path to the SQLite decode archive")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SLOWSCAN_TEMP_DIR", "/tmp"), "Directory for temporary audio conversion files")
	flag.StringVar(&outDir, "out", getEnvOrDefault("SLOWSCAN_OUT_DIR", "decodes"), "Directory decoded images are written to")
	flag.StringVar(&profilePath, "profile", "", "YAML decoder profile")
	flag.IntVar(&sampleRate, "rate", 0, "Sample rate non-WAV input is converted to (default 11025)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService builds the receiver from the global flags, applying the
// profile's log level.
func createService() (receiver.Service, error) {
	profile := receiver.DefaultProfile()
	if profilePath != "" {
		p, err := receiver.LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		profile = p
	}
	if lvl, err := profile.Level(); err == nil && os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(lvl)
	}

	return receiver.NewService(
		receiver.WithDBPath(dbPath),
		receiver.WithTempDir(tempDir),
		receiver.WithOutDir(outDir),
		receiver.WithSampleRate(sampleRate),
		receiver.WithProfile(profile),
	)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "decode":
		handleDecode(args)
	case "modes":
		handleModes()
	case "history":
		handleHistory(args)
	case "show":
		handleShow(args)
	case "delete":
		handleDelete(args)
	case "spectrogram":
		handleSpectrogram(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func mustService() receiver.Service {
	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		logger.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	return svc
}

func handleDecode(args []string) {
	log := logger.GetLogger()

	decodeCmd := flag.NewFlagSet("decode", flag.ExitOnError)
	timeout := decodeCmd.Duration("timeout", 10*time.Minute, "Give up after this long")
	audioPath, rest := splitPositional(args)
	decodeCmd.Parse(rest)

	if audioPath == "" {
		fmt.Println("Usage: slowscan [global-options] decode <audio_file> [--timeout 10m]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	fmt.Println("📡 Decoding", audioPath)
	rec, err := svc.DecodeFile(ctx, audioPath)
	if rec == nil {
		fmt.Printf("\n❌ Decode failed: %v\n", err)
		log.Errorf("DecodeFile failed: %v", err)
		os.Exit(1)
	}

	printDecode(rec)
	if err != nil {
		fmt.Printf("\n⚠️  %v\n", err)
		if errors.Is(err, sstv.ErrNoSignalFound) {
			fmt.Println("   No VIS header was found. Check the recording level and that it starts before the transmission.")
		}
		os.Exit(2)
	}
}

func handleModes() {
	fmt.Printf("%-16s %-6s %-6s %-10s %s\n", "MODE", "VIS", "COLOR", "SIZE", "DURATION")
	for _, d := range modes.Default().All() {
		fmt.Printf("%-16s 0x%02X   %-6s %-10s %.1fs\n",
			d.Name, d.VIS, d.Color, fmt.Sprintf("%dx%d", d.Width, d.Height), d.Duration()/1000)
	}
}

func handleHistory(args []string) {
	log := logger.GetLogger()

	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	limit := historyCmd.Int("n", 20, "Number of decodes to show (0 for all)")
	historyCmd.Parse(args)

	svc := mustService()
	defer svc.Close()

	list, err := svc.ListDecodes(*limit)
	if err != nil {
		fmt.Printf("❌ Failed to list decodes: %v\n", err)
		log.Errorf("ListDecodes failed: %v", err)
		os.Exit(1)
	}

	if len(list) == 0 {
		fmt.Println("\n📭 No decodes in the archive")
		return
	}

	fmt.Printf("\n📚 %d decode(s):\n\n", len(list))
	for _, d := range list {
		mode := d.Mode
		if mode == "" {
			mode = "-"
		}
		fmt.Printf("%s  %s  %-14s %-28s %5.1f dB  %s\n",
			d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04"), mode, d.Status, d.SNR, d.Source)
	}
}

func handleShow(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: slowscan show <decode_id>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	rec, err := svc.GetDecode(args[0])
	if err != nil {
		if receiver.IsNotFound(err) {
			fmt.Printf("❌ Decode not found (ID: %s)\n", args[0])
		} else {
			fmt.Printf("❌ Failed to load decode: %v\n", err)
		}
		os.Exit(1)
	}
	printDecode(rec)
}

func handleDelete(args []string) {
	log := logger.GetLogger()

	if len(args) < 1 {
		fmt.Println("Usage: slowscan delete <decode_id>")
		os.Exit(1)
	}
	id := args[0]

	svc := mustService()
	defer svc.Close()

	if err := svc.DeleteDecode(id); err != nil {
		if receiver.IsNotFound(err) {
			fmt.Printf("❌ Decode not found (ID: %s)\n", id)
		} else {
			fmt.Printf("❌ Failed to delete decode: %v\n", err)
			log.Errorf("DeleteDecode failed: %v", err)
		}
		os.Exit(1)
	}

	fmt.Printf("\n✅ Deleted decode %s\n", id)
	log.Infof("Deleted decode ID=%s", id)
}

func printDecode(d *models.Decode) {
	status := "✅"
	switch d.Status {
	case sstv.StatusCompletedWithDegradation.String():
		status = "⚠️ "
	case sstv.StatusFailed.String():
		status = "❌"
	}

	fmt.Printf("\n%s %s\n", status, d.Status)
	fmt.Printf("   ID:       %s\n", d.ID)
	fmt.Printf("   Source:   %s\n", d.Source)
	if d.Mode != "" {
		fmt.Printf("   Mode:     %s (VIS 0x%02X), %dx%d\n", d.Mode, d.VIS, d.Width, d.Height)
		fmt.Printf("   Lines:    %d", d.Lines)
		if len(d.Degraded) > 0 {
			fmt.Printf(", %d degraded %s", len(d.Degraded), formatLines(d.Degraded, 8))
		}
		fmt.Println()
		fmt.Printf("   SNR:      %.1f dB\n", d.SNR)
		fmt.Printf("   Skew:     %+.0f ppm\n", d.SkewPPM)
		fmt.Printf("   Shift:    %+.1f Hz\n", d.FreqShift)
	}
	if d.Reason != "" && d.Reason != sstv.ReasonNone.String() {
		fmt.Printf("   Reason:   %s\n", d.Reason)
	}
	if d.ImagePath != "" {
		fmt.Printf("   Image:    %s\n", d.ImagePath)
	}
	if d.DurationMs > 0 {
		sec := d.DurationMs / 1000
		fmt.Printf("   Audio:    %d:%02d\n", sec/60, sec%60)
	}
}

func formatLines(lines []int, max int) string {
	parts := make([]string, 0, max)
	for i, l := range lines {
		if i == max {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprint(l))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// splitPositional takes the leading non-flag argument off args.
func splitPositional(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func printUsage() {
	fmt.Println("SlowScan - SSTV decoder CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        SQLite decode archive (env: SLOWSCAN_DB_PATH, default: slowscan.sqlite3)")
	fmt.Println("  --temp <dir>       Temporary directory for audio conversion (env: SLOWSCAN_TEMP_DIR, default: /tmp)")
	fmt.Println("  --out <dir>        Decoded image directory (env: SLOWSCAN_OUT_DIR, default: decodes)")
	fmt.Println("  --profile <file>   YAML decoder profile")
	fmt.Println("  --rate <hz>        Conversion sample rate for non-WAV input (default: 11025)")
	fmt.Println("\nUsage:")
	fmt.Println("  slowscan [global-options] decode <audio_file> [--timeout 10m]")
	fmt.Println("  slowscan modes")
	fmt.Println("  slowscan [global-options] history [-n 20]")
	fmt.Println("  slowscan [global-options] show <decode_id>")
	fmt.Println("  slowscan [global-options] delete <decode_id>")
	fmt.Println("  slowscan spectrogram <wav_file> [--png out.png] [--width 2048] [--height 512]")
	fmt.Println("\nExamples:")
	fmt.Println("  slowscan --profile hf.yaml decode iss-pass.wav")
	fmt.Println("  slowscan --out images decode recording.mp3")
}
