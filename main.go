package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"

	"murmur/audio"
	"murmur/autostart"
	"murmur/clipboard"
	"murmur/config"
	"murmur/cue"
	"murmur/doctor"
	"murmur/encoder"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/output"
	"murmur/provider"
	"murmur/recorder"
	"murmur/shutdown"
	"murmur/update"
)

// Overridden at release time with -ldflags "-X main.version=...".
var version = "dev"

// A press shorter than this toggles; a longer one is push-to-talk.
const holdThreshold = 250 * time.Millisecond

// Shared by the hotkey loop, the pipeline and the scripted test mode.
var (
	store     *config.Store
	registry  *provider.Registry
	session   *recorder.Session
	sink      output.Sink
	historyDB *history.Store
	headless  bool

	finished     atomic.Int32
	shutdownOnce sync.Once
	activeHotkey hotkey.Hotkey
)

// initCrashLog runs before anything else so panics in CGO audio code still
// leave a trace. Flags are not parsed yet, so -logpath is fished out of
// os.Args by hand.
func initCrashLog() {
	flagPath := ""
	for i, arg := range os.Args[1:] {
		if arg == "-logpath" || arg == "--logpath" {
			if i+2 < len(os.Args) {
				flagPath = os.Args[i+2]
			}
		}
	}
	dir, err := log.ResolveDir(flagPath)
	if err != nil {
		return
	}
	log.SetDir(dir)
	if log.EnsureDir() != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "crash.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func run() {
	configPath := flag.String("config", "", "settings file (default: per-user config dir)")
	deviceFlag := flag.String("device", "", "capture device name, overrides the settings file")
	listFlag := flag.Bool("list-devices", false, "print capture devices and exit")
	setupFlag := flag.Bool("setup", false, "interactive first-run setup")
	doctorFlag := flag.Bool("doctor", false, "run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "print version and exit")
	logPath := flag.String("logpath", "", "log directory (default: per-user log dir)")
	noTUI := flag.Bool("no-tui", false, "run headless; transcripts go to stdout")
	autostartFlag := flag.String("autostart", "", "on, off or status: start with the desktop session")
	updateFlag := flag.Bool("update", false, "install the latest release and exit")
	historyN := flag.Int("history", 0, "print the N most recent transcripts and exit")
	searchTerm := flag.String("search", "", "search past transcripts and exit")
	testWAV := flag.String("test", "", "scripted mode: audio from a WAV file, commands from stdin")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		return
	}

	logDir, err := log.ResolveDir(*logPath)
	if err != nil {
		fatalf("resolving log directory: %v", err)
	}
	log.SetDir(logDir)

	if *updateFlag {
		runUpdate()
		return
	}
	if *autostartFlag != "" {
		runAutostart(*autostartFlag)
		return
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	store, err = config.NewStore(path)
	if err != nil {
		fatalf("%v", err)
	}
	cfg := store.Get()
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}

	registry = buildRegistry(store)

	switch {
	case *doctorFlag:
		os.Exit(doctor.Run(cfg, registry))
	case *historyN > 0:
		runHistoryQuery(cfg, *historyN, "")
		return
	case *searchTerm != "":
		runHistoryQuery(cfg, 0, *searchTerm)
		return
	case *listFlag:
		actx, err := audio.NewContext()
		if err != nil {
			fatalf("initializing audio: %v", err)
		}
		defer actx.Close()
		if err := listDevices(actx); err != nil {
			fatalf("%v", err)
		}
		return
	case *setupFlag:
		runSetup()
		return
	case *testWAV != "":
		runTestMode(*testWAV)
		return
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(cfg.STTProvider, cfg.EnrichProvider, cfg.Mode)

	registry.OnFallback = func(cap provider.Capability, from, to string) {
		log.ProviderFallback(cap.String(), from, to)
	}

	if cfg.History.Enabled {
		openHistory(cfg)
		if historyDB != nil {
			defer historyDB.Close()
		}
	}

	sink = buildSink(cfg)
	if needsPasteInjection(cfg) {
		if err := clipboard.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste injection unavailable: %v\n", err)
			log.Warnf("paste injection unavailable: %v", err)
		}
	}

	if !cfg.SoundCues {
		cue.Disable()
	}
	cue.Init()

	actx, err := audio.NewContext()
	if err != nil {
		fatalf("initializing audio: %v", err)
	}
	defer actx.Close()

	device, err := resolveDevice(actx, cfg.Device)
	if err != nil {
		fatalf("%v", err)
	}
	deviceName := "default input"
	if device != nil {
		deviceName = device.Name
	}

	combo, err := hotkey.ParseCombo(cfg.Hotkey)
	if err != nil {
		fatalf("hotkey: %v", err)
	}

	session = recorder.New(recorder.Config{
		Audio:       actx,
		Device:      device,
		MinDuration: time.Duration(cfg.MinDurationSeconds) * time.Second,
		MaxDuration: time.Duration(cfg.MaxDurationSeconds) * time.Second,
		Notify:      sessionEvent,
		OnAutoStop: func(data []byte, err error) {
			if err != nil {
				cue.PlayError()
				reportError("auto-stop: %v", err)
				return
			}
			if data != nil {
				finishRecording(data)
			}
		},
	})

	headless = *noTUI || !term.IsTerminal(int(os.Stdout.Fd()))
	var tuiDone chan struct{}
	if !headless {
		p := newTUIProgram(describeMode(cfg, registry), "mic: "+deviceName, combo.String())
		tuiMu.Lock()
		tuiProgram = p
		tuiMu.Unlock()
		tuiDone = make(chan struct{})
		go func() {
			if _, err := p.Run(); err != nil {
				log.Errorf("tui: %v", err)
			}
			close(tuiDone)
		}()
	} else {
		fmt.Printf("murmur %s listening on %s (%s)\n", version, combo.String(), deviceName)
	}

	update.StartBackgroundCheck(version, logDir, func(rel update.Release) {
		log.Infof("update available: %s", rel.Version)
		uiSend(updateLineMsg{Text: fmt.Sprintf("update %s available: murmur -update", rel.Version)})
	})

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		uiQuit(tuiDone)
		fatalf("registering hotkey %s: %v", combo.String(), err)
	}
	activeHotkey = hk

	sigCh := shutdown.Notify()

	go hotkeyLoop(cfg, hk)

	select {
	case <-sigCh:
	case <-tuiDone:
		tuiDone = nil
	}
	gracefulShutdown()
	uiQuit(tuiDone)
}

// gracefulShutdown releases the devices exactly once no matter whether a
// signal, the TUI or a fatal error gets here first.
func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if session != nil {
			session.Cancel()
		}
		if activeHotkey != nil {
			activeHotkey.Unregister()
		}
		log.SessionEnd(int(finished.Load()))
	})
}

func uiQuit(done chan struct{}) {
	tuiMu.Lock()
	p := tuiProgram
	tuiProgram = nil
	tuiMu.Unlock()
	if p != nil {
		p.Quit()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}

// hotkeyLoop drives the session from hotkey transitions. In hold-to-talk
// mode every press records for exactly as long as it is held; otherwise a
// tap toggles and a hold is push-to-talk.
func hotkeyLoop(cfg config.Config, hk hotkey.Hotkey) {
	if cfg.HoldToTalk {
		for {
			<-hk.Keydown()
			startRecording()
			<-hk.Keyup()
			stopAndFinish()
		}
	}
	hy := hotkey.NewHybrid(hk, holdThreshold)
	for {
		<-hy.Start()
		startRecording()
		<-hy.Stop()
		stopAndFinish()
	}
}

func startRecording() {
	if err := session.Start(); err != nil {
		if errors.Is(err, recorder.ErrAlreadyRecording) {
			return
		}
		cue.PlayError()
		reportError("%v", err)
		// Clears the error state so the next press can try again.
		session.Cancel()
		return
	}
	cue.PlayStart()
}

func stopAndFinish() {
	data, err := session.Stop()
	if err != nil {
		if errors.Is(err, recorder.ErrNotRecording) {
			// The max-duration stop already took this recording.
			return
		}
		cue.PlayError()
		reportError("%v", err)
		return
	}
	if data == nil {
		return
	}
	// The pipeline runs detached so the hotkey loop can accept the next
	// recording while this one is still uploading.
	go finishRecording(data)
}

// finishRecording carries one capture through transcription, enrichment,
// delivery and history.
func finishRecording(wavData []byte) {
	cfg := store.Get()
	start := time.Now()

	audioSeconds, _ := encoder.Duration(wavData)

	uiSend(busyMsg{Text: "transcribing"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tr, ok := registry.SelectTranscriber(ctx, cfg.STTProvider)
	if !ok {
		cue.PlayError()
		reportError("no usable speech-to-text provider; set an API key or install whisper.cpp")
		return
	}

	// The local engine reads WAV straight off disk; compression only helps
	// the wire.
	upload := wavData
	format := "wav"
	if cfg.UploadFormat == "flac" && tr.Name() != "whisper" {
		if fl, err := encoder.TranscodeFLAC(wavData); err == nil {
			upload = fl
			format = "flac"
		} else {
			log.Warnf("flac transcode failed, uploading wav: %v", err)
		}
	}

	result, err := tr.Transcribe(ctx, upload, cfg.Language)
	if err != nil {
		cue.PlayError()
		logProviderErr(err)
		hint := ""
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Retryable {
			hint = "; press again to retry"
		}
		reportError("transcription failed: %v%s", err, hint)
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		log.Info("no speech detected")
		uiSend(resultMsg{Text: "(no speech detected)", NoSpeech: true})
		return
	}

	language := cfg.Language
	if result.DetectedLanguage != "" {
		language = result.DetectedLanguage
	}

	final := text
	enriched := ""
	enrichName := ""
	if cfg.Mode != "" {
		uiSend(busyMsg{Text: "enriching"})
		estart := time.Now()
		opts := provider.ModeOptions{
			SummarySentences: cfg.SummarySentences,
			CustomPrompt:     cfg.CustomPrompt,
		}
		if en, ok := registry.SelectEnricher(ctx, cfg.EnrichProvider); ok {
			out, err := en.Process(ctx, text, provider.Mode(cfg.Mode), opts)
			if err != nil {
				// The raw transcript still gets delivered; losing the
				// dictation over a formatting step is worse.
				logProviderErr(err)
				log.Warnf("enrichment failed, delivering raw transcript: %v", err)
			} else {
				enriched = out
				final = out
				enrichName = en.Name()
				log.EnrichmentMetrics(enrichName, cfg.Mode, msSince(estart))
			}
		} else {
			log.Warnf("no usable enrichment provider, delivering raw transcript")
		}
	}

	delivered := ""
	if err := sink.Deliver(final); err != nil {
		cue.PlayError()
		log.Errorf("deliver to %s: %v", sink.Name(), err)
		uiSend(errorMsg{Text: fmt.Sprintf("deliver to %s: %v", sink.Name(), err)})
	} else {
		delivered = sink.Name()
		cue.PlayEnd()
	}

	totalMs := msSince(start)
	log.TranscriptionMetrics(log.Metrics{
		AudioLengthS: audioSeconds,
		UploadKB:     float64(len(upload)) / 1024,
		UploadFormat: format,
		TotalTimeMs:  totalMs,
	}, tr.Name(), language)
	log.DictationText(final)

	if historyDB != nil {
		entry := history.Entry{
			DurationSeconds: audioSeconds,
			Language:        language,
			STTProvider:     tr.Name(),
			EnrichProvider:  enrichName,
			Transcript:      text,
			Enriched:        enriched,
		}
		if enrichName != "" {
			entry.Mode = cfg.Mode
		}
		hctx, hcancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := historyDB.Append(hctx, entry); err != nil {
			log.Warnf("history append: %v", err)
		}
		if removed, err := historyDB.Prune(hctx, cfg.History.RetentionDays); err != nil {
			log.Warnf("history prune: %v", err)
		} else if removed > 0 {
			log.HistoryPrune(removed, cfg.History.RetentionDays)
		}
		hcancel()
	}

	meta := []string{
		fmt.Sprintf("%.1fs audio", audioSeconds),
		fmt.Sprintf("%s %.0fKB", format, float64(len(upload))/1024),
		tr.Name(),
		fmt.Sprintf("%.0fms", totalMs),
	}
	uiSend(resultMsg{Text: final, Meta: meta, Delivered: delivered})
	if headless {
		fmt.Println(final)
	}
	finished.Add(1)
}

// sessionEvent forwards recorder notifications to the TUI.
func sessionEvent(e recorder.Event) {
	switch e.Type {
	case recorder.EventStarted:
		uiSend(recStartedMsg{})
	case recorder.EventTick:
		uiSend(recTickMsg{Seconds: e.ElapsedSeconds})
	case recorder.EventLevel:
		uiSend(recLevelMsg{Percent: e.LevelPercent})
	case recorder.EventStopped:
		uiSend(recStoppedMsg{})
	}
}

func reportError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error(msg)
	uiSend(errorMsg{Text: msg})
	if headless {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
}

func logProviderErr(err error) {
	var perr *provider.Error
	if errors.As(err, &perr) {
		log.ProviderFailure(perr.Provider, string(perr.Code), perr.Retryable, perr.Message)
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}

// buildRegistry wires every backend with a closure over the settings store,
// so a config change applies to the next request without a restart.
func buildRegistry(s *config.Store) *provider.Registry {
	reg := provider.NewRegistry()

	reg.RegisterTranscriber(provider.NewWhisper(func() provider.WhisperConfig {
		c := s.Get().Providers.Whisper
		return provider.WhisperConfig{BinaryPath: c.BinaryPath, ModelPath: c.ModelPath}
	}))
	openai := provider.NewOpenAI(func() provider.OpenAIConfig {
		c := s.Get().Providers.OpenAI
		return provider.OpenAIConfig{
			APIKey:    c.APIKey,
			BaseURL:   c.BaseURL,
			STTModel:  c.STTModel,
			ChatModel: c.ChatModel,
		}
	})
	reg.RegisterTranscriber(openai)
	reg.RegisterEnricher(openai)
	groq := provider.NewGroq(func() provider.GroqConfig {
		c := s.Get().Providers.Groq
		return provider.GroqConfig{
			APIKey:    c.APIKey,
			BaseURL:   c.BaseURL,
			STTModel:  c.STTModel,
			ChatModel: c.ChatModel,
		}
	})
	reg.RegisterTranscriber(groq)
	reg.RegisterEnricher(groq)
	reg.RegisterEnricher(provider.NewOllama(func() provider.OllamaConfig {
		c := s.Get().Providers.Ollama
		return provider.OllamaConfig{BaseURL: c.BaseURL, Model: c.Model}
	}))

	cfg := s.Get()
	if cfg.STTProvider != "" {
		if err := reg.SetDefault(provider.SpeechToText, cfg.STTProvider); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	if cfg.EnrichProvider != "" {
		if err := reg.SetDefault(provider.TextEnrichment, cfg.EnrichProvider); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return reg
}

func buildSink(cfg config.Config) output.Sink {
	switch cfg.Output.Target {
	case "file":
		return output.NewFile(cfg.Output.File)
	case "type":
		return output.NewTyper()
	default:
		return output.NewClipboard(cfg.Output.AutoPaste, cfg.Output.RestoreClipboard)
	}
}

func needsPasteInjection(cfg config.Config) bool {
	switch cfg.Output.Target {
	case "type":
		return true
	case "clipboard":
		return cfg.Output.AutoPaste
	}
	return false
}

func describeMode(cfg config.Config, reg *provider.Registry) string {
	stt := cfg.STTProvider
	if stt == "" {
		stt = reg.Default(provider.SpeechToText)
	}
	if stt == "" {
		stt = "none"
	}
	line := fmt.Sprintf("%s · %s", stt, cfg.UploadFormat)
	if cfg.Mode != "" {
		en := cfg.EnrichProvider
		if en == "" {
			en = reg.Default(provider.TextEnrichment)
		}
		line += fmt.Sprintf(" · %s via %s", cfg.Mode, en)
	}
	return line + " · " + cfg.Output.Target
}

func openHistory(cfg config.Config) {
	path := cfg.History.Path
	if path == "" {
		path = history.DefaultPath()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := history.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history unavailable: %v\n", err)
		log.Warnf("history unavailable: %v", err)
		return
	}
	historyDB = db
	if removed, err := db.Prune(ctx, cfg.History.RetentionDays); err != nil {
		log.Warnf("history prune: %v", err)
	} else if removed > 0 {
		log.HistoryPrune(removed, cfg.History.RetentionDays)
	}
}

func runHistoryQuery(cfg config.Config, recent int, term string) {
	path := cfg.History.Path
	if path == "" {
		path = history.DefaultPath()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := history.Open(ctx, path)
	if err != nil {
		fatalf("opening history: %v", err)
	}
	defer db.Close()

	var entries []history.Entry
	if term != "" {
		entries, err = db.Search(ctx, term, 50)
	} else {
		entries, err = db.Recent(ctx, recent)
	}
	if err != nil {
		fatalf("querying history: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No matching transcripts.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-8s %4.0fs  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.STTProvider,
			e.DurationSeconds,
			e.Text())
	}
}

func runSetup() {
	actx, err := audio.NewContext()
	if err != nil {
		fatalf("initializing audio: %v", err)
	}
	defer actx.Close()

	device, err := audio.SelectDevice(actx, store.Get().Device)
	if err != nil {
		fatalf("%v", err)
	}
	if err := store.Update(func(c *config.Config) {
		c.Device = device.Name
	}); err != nil {
		fatalf("saving settings: %v", err)
	}
	fmt.Printf("Saved %q to %s\n", device.Name, store.Path())
	fmt.Println("Edit that file to set providers, hotkey and output. Run murmur -doctor to verify.")
}

func runUpdate() {
	fmt.Printf("murmur %s, checking for updates...\n", version)
	rel, err := update.CheckLatest(version)
	if err != nil {
		fatalf("checking for updates: %v", err)
	}
	if rel == nil {
		fmt.Println("Already up to date.")
		return
	}
	fmt.Printf("Downloading %s...\n", rel.Version)
	if err := update.Apply(rel); err != nil {
		fatalf("applying update: %v", err)
	}
	fmt.Printf("Updated to %s.\n", rel.Version)
}

func runAutostart(mode string) {
	switch mode {
	case "on":
		if err := autostart.Enable(); err != nil {
			fatalf("%v", err)
		}
		fmt.Println("murmur will start with your session.")
	case "off":
		if err := autostart.Disable(); err != nil {
			fatalf("%v", err)
		}
		fmt.Println("Autostart disabled.")
	case "status":
		if autostart.Enabled() {
			fmt.Println("Autostart is on.")
		} else {
			fmt.Println("Autostart is off.")
		}
	default:
		fatalf("-autostart takes on, off or status")
	}
}
