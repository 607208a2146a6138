// Package doctor runs the interactive diagnostics behind --doctor: settings,
// providers, hotkey, a real microphone recording through the transcription
// path, and clipboard delivery.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/config"
	"murmur/encoder"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/provider"
	"murmur/recorder"
)

const probeTimeout = 3 * time.Second

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg config.Config, reg *provider.Registry) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("murmur doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	ok := checkSettings(cfg)
	ok = checkProviders(reg) && ok
	ok = checkHotkey(cfg) && ok
	if ok {
		ok = checkMicAndTranscription(cfg, reg)
	}
	if ok {
		ok = checkClipboard()
	}

	fmt.Println()
	if ok {
		fmt.Println("Everything checks out.")
		return 0
	}
	fmt.Println("Some checks failed; details above.")
	return 1
}

func checkSettings(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[1/5] Settings and storage")

	fmt.Printf("  language=%s hotkey=%s upload=%s output=%s\n",
		cfg.Language, cfg.Hotkey, cfg.UploadFormat, cfg.Output.Target)

	if err := log.EnsureDir(); err != nil {
		fmt.Printf("  FAIL: log directory: %v\n", err)
		return false
	}
	fmt.Printf("  log directory OK: %s\n", log.Dir())

	if !cfg.History.Enabled {
		fmt.Println("  history disabled")
		fmt.Println("  PASS: settings OK")
		return true
	}

	path := cfg.History.Path
	if path == "" {
		path = history.DefaultPath()
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	store, err := history.Open(ctx, path)
	if err != nil {
		fmt.Printf("  FAIL: history db: %v\n", err)
		return false
	}
	defer store.Close()
	n, err := store.Count(ctx)
	if err != nil {
		fmt.Printf("  FAIL: history db: %v\n", err)
		return false
	}
	fmt.Printf("  history OK: %d recording(s) in %s\n", n, path)
	fmt.Println("  PASS: settings OK")
	return true
}

func checkProviders(reg *provider.Registry) bool {
	fmt.Println()
	fmt.Println("[2/5] Providers")

	var stt, enrich []provider.Provider
	for _, p := range reg.Transcribers() {
		stt = append(stt, p)
	}
	for _, p := range reg.Enrichers() {
		enrich = append(enrich, p)
	}

	sttOK := printProviderGroup("speech-to-text", stt, reg.Default(provider.SpeechToText))
	printProviderGroup("text-enrichment", enrich, reg.Default(provider.TextEnrichment))

	if !sttOK {
		fmt.Println("  FAIL: no usable speech-to-text provider; set an API key or install whisper.cpp")
		return false
	}
	fmt.Println("  PASS: at least one speech-to-text provider is usable")
	return true
}

func printProviderGroup(label string, ps []provider.Provider, def string) bool {
	fmt.Printf("  %s:\n", label)
	if len(ps) == 0 {
		fmt.Println("    (none registered)")
		return false
	}
	anyUsable := false
	for _, p := range ps {
		status := "not configured"
		if p.Configured() {
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			if p.Available(ctx) {
				status = "configured, available"
				anyUsable = true
			} else {
				status = "configured, unreachable"
			}
			cancel()
		}
		marker := ""
		if p.Name() == def {
			marker = "  (default)"
		}
		fmt.Printf("    %-10s %s%s\n", p.Name(), status, marker)
	}
	return anyUsable
}

func checkHotkey(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[3/5] Hotkey detection")

	combo, err := hotkey.ParseCombo(cfg.Hotkey)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", msg)

	fmt.Printf("Press %s...\n", combo)

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: hotkey registration: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: combo seen")
		// Swallow the release so it does not leak into the next step.
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: no keypress within 10s")
		return false
	}
}

func checkMicAndTranscription(cfg config.Config, reg *provider.Registry) bool {
	fmt.Println()
	fmt.Println("[4/5] Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: audio backend: %v\n", err)
		return false
	}
	defer actx.Close()

	device, err := audio.SelectDevice(actx, cfg.Device)
	if err != nil {
		fmt.Printf("  FAIL: device selection: %v\n", err)
		return false
	}

	fmt.Println()
	fmt.Print("Press Enter, then speak for three seconds...")
	reader.ReadString('\n')

	data, err := record(actx, device, 3*time.Second)
	if err != nil {
		fmt.Printf("  FAIL: capture: %v\n", err)
		return false
	}
	if len(data) == 0 {
		fmt.Println("  FAIL: the microphone produced no audio")
		return false
	}

	if cfg.UploadFormat == "flac" {
		flacData, err := encoder.TranscodeFLAC(data)
		if err != nil {
			fmt.Printf("  FAIL: flac transcode: %v\n", err)
			return false
		}
		fmt.Printf("  captured %.1f KB (%.1f KB as flac), transcribing...\n",
			float64(len(data))/1024, float64(len(flacData))/1024)
		data = flacData
	} else {
		fmt.Printf("  captured %.1f KB, transcribing...\n", float64(len(data))/1024)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	result, err := reg.Transcribe(ctx, data, cfg.Language, cfg.STTProvider)
	if err != nil {
		fmt.Printf("  FAIL: transcription: %v\n", err)
		return false
	}
	text := strings.TrimSpace(result.Text)

	fmt.Printf("\n  Transcribed text: %s\n", text)

	if cfg.Mode != "" {
		enriched, err := reg.Enrich(ctx, text, provider.Mode(cfg.Mode),
			provider.ModeOptions{SummarySentences: cfg.SummarySentences, CustomPrompt: cfg.CustomPrompt},
			cfg.EnrichProvider)
		if err != nil {
			fmt.Printf("  warning: enrichment (%s) failed: %v\n", cfg.Mode, err)
		} else {
			fmt.Printf("  Enriched (%s): %s\n", cfg.Mode, enriched)
		}
	}
	fmt.Println()

	// A stray newline from the earlier prompt must not answer for the user.
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Did it get your words right? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcript confirmed")
		return true
	}
	fmt.Println("  FAIL: transcript rejected")
	return false
}

// record captures for the given duration through the same session the app
// uses, so the doctor exercises the real capture path.
func record(actx audio.Context, device *audio.DeviceInfo, d time.Duration) ([]byte, error) {
	sess := recorder.New(recorder.Config{
		Audio:  actx,
		Device: device,
	})
	if err := sess.Start(); err != nil {
		return nil, err
	}

	fmt.Print("  capturing")
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(d)
	for {
		select {
		case <-deadline:
			fmt.Println(" done")
			return sess.Stop()
		case <-ticker.C:
			fmt.Print(".")
		}
	}
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[5/5] Clipboard and paste")

	if err := clipboard.Init(); err != nil {
		fmt.Printf("  warning: paste injection: %v\n", err)
	}

	// Copy and read back with a timeout; a missing clipboard utility can
	// hang rather than fail.
	testStr := fmt.Sprintf("murmur-doctor-%d", time.Now().UnixNano())
	type cbResult struct {
		readback string
		err      error
		phase    string
	}
	ch := make(chan cbResult, 1)
	go func() {
		if err := clipboard.Copy(testStr); err != nil {
			ch <- cbResult{err: err, phase: "write"}
			return
		}
		got, err := clipboard.Read()
		if err != nil {
			ch <- cbResult{err: err, phase: "read"}
			return
		}
		ch <- cbResult{readback: got}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			fmt.Printf("  FAIL: clipboard %s failed: %v\n", res.phase, res.err)
			return false
		}
		if res.readback != testStr {
			fmt.Printf("  FAIL: clipboard mismatch: wrote %q, got %q\n", testStr, res.readback)
			return false
		}
		fmt.Println("  clipboard write/read verified")
	case <-time.After(3 * time.Second):
		fmt.Println("  FAIL: clipboard timed out (clipboard tool hung - compositor not accessible?)")
		return false
	}

	msg, err := clipboard.Verify()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s\n", msg)
	return true
}
