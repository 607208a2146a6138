package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/cue"
	"murmur/hotkey"
	"murmur/log"
	"murmur/provider"
	"murmur/recorder"
)

// trackingContext remembers the capture it last handed out so the script
// driver can wait for the fake audio to finish feeding.
type trackingContext struct {
	*audio.FakeContext

	mu   sync.Mutex
	last *audio.FakeCapture
}

func (t *trackingContext) NewCapture(device *audio.DeviceInfo, cfg audio.CaptureConfig) (audio.CaptureDevice, error) {
	c, err := t.FakeContext.NewCapture(device, cfg)
	if err == nil {
		t.mu.Lock()
		t.last = c.(*audio.FakeCapture)
		t.mu.Unlock()
	}
	return c, err
}

func (t *trackingContext) audioDone() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.last.AudioDone()
}

// runTestMode replays a WAV file through the whole pipeline, driven by
// commands on stdin: KEYDOWN, KEYUP, WAIT, WAIT_AUDIO_DONE, SLEEP <ms>,
// QUIT. Transcripts land on stdout, so assertions need no log scraping.
func runTestMode(wavPath string) {
	cue.Disable()
	headless = true

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
	}
	defer log.Close()

	cfg := store.Get()
	log.SessionStart(cfg.STTProvider, cfg.EnrichProvider, cfg.Mode)

	// MURMUR_FAKE_TRANSCRIPT makes the run hermetic: a canned backend
	// replaces the registry so no test needs an API key.
	if canned := os.Getenv("MURMUR_FAKE_TRANSCRIPT"); canned != "" {
		reg := provider.NewRegistry()
		reg.RegisterTranscriber(provider.NewFakeTranscriber("fake", canned))
		reg.RegisterEnricher(provider.NewFakeEnricher("fake"))
		registry = reg
	}

	sink = buildSink(cfg)
	if needsPasteInjection(cfg) {
		if err := clipboard.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "paste injection unavailable: %v\n", err)
		}
	}

	fakeCtx, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fatalf("loading %s: %v", wavPath, err)
	}
	actx := &trackingContext{FakeContext: fakeCtx}

	// No minimum duration here: a scripted KEYDOWN/KEYUP pair stops
	// within milliseconds yet carries the whole file.
	session = recorder.New(recorder.Config{
		Audio:  actx,
		Notify: sessionEvent,
	})

	hk := hotkey.NewFake()
	cycleDone := make(chan struct{}, 1)

	go driveScript(hk, cycleDone, actx)

	for {
		<-hk.Keydown()
		startRecording()
		<-hk.Keyup()
		data, err := session.Stop()
		switch {
		case err != nil && !errors.Is(err, recorder.ErrNotRecording):
			log.Errorf("recording error: %v", err)
		case data != nil:
			// Synchronous here so WAIT means "pipeline finished".
			finishRecording(data)
		}
		select {
		case cycleDone <- struct{}{}:
		default:
		}
	}
}

// driveScript feeds hotkey events from the stdin script to hk. Exits the
// process on QUIT or end of script.
func driveScript(hk *hotkey.FakeHotkey, cycleDone chan struct{}, actx *trackingContext) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		verb, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch verb {
		case "KEYDOWN":
			hk.SimKeydown()
		case "KEYUP":
			hk.SimKeyup()
		case "WAIT":
			<-cycleDone
		case "WAIT_AUDIO_DONE":
			<-actx.audioDone()
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			log.SessionEnd(int(finished.Load()))
			os.Exit(0)
		}
	}
	os.Exit(0)
}
