package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var (
	configFile = flag.String("config", "", "Path to a JSON config file")
	mode       = flag.String("mode", "", "Control mode: eye or hand")
	listen     = flag.String("listen", "", "HTTP listen address")
	dataDir    = flag.String("data", "", "Data directory for the database")
	pluginDir  = flag.String("plugins", "", "Plugin directory")
	cameraID   = flag.Int("camera", -1, "Camera device ID")
	noTray     = flag.Bool("no-tray", false, "Run without the system tray")
)

func main() {
	flag.Parse()
	fmt.Println("Mudra - landmark gesture control")

	base, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dir, err := expandHome(base.DataDir)
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dir, "mudra.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	effective := base
	if stored, err := st.Settings().All(); err != nil {
		log.Printf("Failed to read settings: %v", err)
	} else if err := effective.ApplySettings(stored); err != nil {
		log.Printf("Ignoring stored settings: %v", err)
	}
	applyFlags(&effective)

	a, err := app.New(app.Config{Control: effective, Store: st})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	if err := a.LoadTemplates(); err != nil {
		log.Printf("Failed to load poses: %v", err)
	}

	hub := server.NewHub(server.DefaultBroadcastInterval)
	defer hub.Close()
	a.OnSnapshot(func(snap control.Snapshot) { hub.Publish(snap) })

	var t *tray.Tray
	if !*noTray {
		t = tray.New()
		a.OnSnapshot(t.Update)
	}

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: a,
		Hub:        hub,
		Preview:    a.Preview(),
		Plugins:    a.PluginManager(),
		Base:       base,
		OnPosesChanged: func() {
			if err := a.LoadTemplates(); err != nil {
				log.Printf("Failed to reload poses: %v", err)
			}
		},
		OnSettingsChanged: func(cfg config.Config) {
			applyFlags(&cfg)
			a.Configure(cfg)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer a.Stop()

	httpServer := &http.Server{Addr: effective.ListenAddr, Handler: srv}
	go func() {
		fmt.Printf("Starting server on %s\n", effective.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if t != nil {
		t.SetEnabled(a.Enabled())
		t.OnToggle(a.SetEnabled)
		t.OnRecalibrate(a.Recalibrate)
		t.OnSettings(func() { log.Printf("Settings: http://localhost%s/", effective.ListenAddr) })
		t.OnQuit(stop)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// loadConfig builds the base configuration from defaults, the config file
// and the command-line flags.
func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	if *mode != "" {
		cfg = config.DefaultConfigFor(detector.Mode(*mode))
	}

	if *configFile != "" {
		f, err := config.LoadFile(*configFile)
		if err != nil {
			return cfg, err
		}
		if err := f.Apply(&cfg); err != nil {
			return cfg, err
		}
	}

	applyFlags(&cfg)
	return cfg, cfg.Validate()
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = detector.Mode(*mode)
		case "listen":
			cfg.ListenAddr = *listen
		case "data":
			cfg.DataDir = *dataDir
		case "plugins":
			cfg.PluginDir = *pluginDir
		case "camera":
			cfg.CameraID = *cameraID
		}
	})
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
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

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
