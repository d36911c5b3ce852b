package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/insync/internal/app"
	"github.com/ayusman/insync/internal/audio"
	"github.com/ayusman/insync/internal/capture"
	"github.com/ayusman/insync/internal/detector"
	"github.com/ayusman/insync/internal/dispatch"
	"github.com/ayusman/insync/internal/sentence"
	"github.com/ayusman/insync/internal/server"
	"github.com/ayusman/insync/internal/smoother"
	"github.com/ayusman/insync/internal/speech"
	"github.com/ayusman/insync/internal/store"
	"github.com/ayusman/insync/internal/translate"
	"github.com/ayusman/insync/internal/tray"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cameraID := flag.Int("camera", 0, "camera device id")
	useTray := flag.Bool("tray", false, "show the system tray menu")
	staticDir := flag.String("static", "", "static files directory (default: auto-detect)")
	voiceID := flag.String("voice", "", "ElevenLabs voice id (default: provider default)")
	contextHint := flag.String("context", "", "conversation context passed to the translator")
	flag.Parse()

	fmt.Println("InSync - Sign Language Interpreter")

	// Initialize the store
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".insync")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "insync.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to start landmark detector: %v", err)
	}

	var translator translate.Translator
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		translator, err = translate.NewOpenAIClient(translate.OpenAIConfig{APIKey: key})
		if err != nil {
			log.Fatalf("Failed to create translator: %v", err)
		}
	} else {
		log.Println("OPENAI_API_KEY not set; sentences will be spoken verbatim")
		translator = translate.NewStub()
	}

	var synth speech.Synthesizer
	if key := os.Getenv("XI_API_KEY"); key != "" {
		synth, err = speech.NewElevenLabsClient(speech.ElevenLabsConfig{APIKey: key})
		if err != nil {
			log.Fatalf("Failed to create synthesizer: %v", err)
		}
	} else {
		log.Println("XI_API_KEY not set; speech synthesis disabled")
		synth = speech.NewStub()
	}

	var player audio.Player
	player, err = audio.NewExecPlayer()
	if err != nil {
		log.Printf("No audio player found, playback disabled: %v", err)
		player = audio.Silent{}
	}

	dispatchConfig := dispatch.DefaultConfig()
	dispatchConfig.VoiceID = *voiceID
	dispatchConfig.ContextHint = *contextHint

	a, err := app.New(app.Config{
		Camera:      capture.NewCamera(*cameraID),
		Detector:    det,
		Translator:  translator,
		Synthesizer: synth,
		Player:      player,
		Store:       st,
		Smoother:    smoother.DefaultConfig(),
		Sentence:    sentence.DefaultConfig(),
		Dispatch:    dispatchConfig,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer a.Shutdown()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	webDir := *staticDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Control:   a,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if *useTray {
		runTray(a)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println("Shutting down")
}

// runTray blocks on the system tray event loop until the user quits.
func runTray(a *app.App) {
	t := tray.New()
	t.OnToggle(func(running bool) {
		if running {
			if err := a.Start(); err != nil {
				log.Printf("Failed to start pipeline: %v", err)
			}
		} else {
			if err := a.Stop(); err != nil {
				log.Printf("Failed to stop pipeline: %v", err)
			}
		}
	})
	t.OnForceSentence(func() { a.ForceSentence() })
	t.OnClear(func() { a.ClearAll() })
	t.Run()
}

// findWebDir searches for the web directory in common locations.
// It checks "web", "../web", "../../web", and dataDir/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
