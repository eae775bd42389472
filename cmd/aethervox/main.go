// Command aethervox is the dialogue playback daemon. The game-side plugin
// pushes world snapshots and dialogue events over HTTP; the daemon resolves
// each line against the voice manifest, plays pre-rendered audio or falls
// back to speech synthesis, and mixes everything to the host audio device.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kvxd/aethervox/internal/config"
	"github.com/kvxd/aethervox/internal/dispatch"
	"github.com/kvxd/aethervox/internal/health"
	"github.com/kvxd/aethervox/internal/observe"
	"github.com/kvxd/aethervox/internal/playback"
	"github.com/kvxd/aethervox/internal/queue"
	"github.com/kvxd/aethervox/internal/report"
	"github.com/kvxd/aethervox/internal/resilience"
	"github.com/kvxd/aethervox/internal/resolve"
	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/audio/device"
	"github.com/kvxd/aethervox/pkg/audio/mixer"
	"github.com/kvxd/aethervox/pkg/manifest"
	"github.com/kvxd/aethervox/pkg/provider/transcode"
	"github.com/kvxd/aethervox/pkg/provider/tts"
	"github.com/kvxd/aethervox/pkg/provider/tts/edge"
	oaitts "github.com/kvxd/aethervox/pkg/provider/tts/openai"
	"github.com/kvxd/aethervox/pkg/provider/tts/remote"
	"github.com/kvxd/aethervox/pkg/types"
)

// tickInterval stands in for the host frame clock: queue transitions and
// track volume math advance at this cadence.
const tickInterval = 50 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Log level is mutable so config reloads can change it live.
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.Empty() {
			return
		}
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
		}
		if d.RestartRequired {
			slog.Warn("config change requires a restart to take effect")
		}
		slog.Info("configuration reloaded",
			"audio", d.AudioChanged,
			"channels", d.ChannelsChanged,
			"manifest", d.ManifestChanged,
			"reporting", d.ReportingChanged,
		)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "aethervox: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "aethervox: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	level.Set(slogLevel(cfg.Server.LogLevel))

	slog.Info("aethervox starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "aethervox"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Provider registry.
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	synth := buildSynthesis(reg, cfg.Synthesis)
	processor := buildProcessor(reg)

	// Manifest and asset store.
	manifests, err := manifest.NewFileProvider(cfg.Manifest.Path,
		manifest.WithInterval(cfg.Manifest.RefreshInterval.Std()))
	if err != nil {
		slog.Error("failed to open manifest", "path", cfg.Manifest.Path, "err", err)
		return 1
	}
	defer manifests.Close()

	assets, err := dispatch.NewDirStore(cfg.Manifest.AssetsDir)
	if err != nil {
		slog.Error("failed to open asset store", "dir", cfg.Manifest.AssetsDir, "err", err)
		return 1
	}

	// World state, audio output, playback.
	worldState := world.NewState()

	mix := mixer.New()
	dev, err := device.New(mix)
	if err != nil {
		slog.Error("failed to open audio device", "err", err)
		return 1
	}
	defer dev.Close()

	controller := playback.New(mix, worldState, watcher.Current, slog.Default())

	// The queue hands dequeued lines back to the dispatcher; dispatcher and
	// queue reference each other, so the StartFunc closes over the variable.
	var dispatcher *dispatch.Dispatcher
	queueMgr := queue.New(
		func(msg *types.DialogueMessage) { dispatcher.Start(msg) },
		queue.WithTimeoutHook(func(ch types.Channel) {
			metrics.RecordQueueTimeout(context.Background(), string(ch))
		}),
	)

	reports, pgClose, err := buildReporting(ctx, cfg.Reporting, worldState, metrics)
	if err != nil {
		slog.Error("failed to set up reporting", "err", err)
		return 1
	}
	if pgClose != nil {
		defer pgClose()
	}

	dispatcher = dispatch.New(dispatch.Deps{
		Manifests: manifests,
		Resolver:  resolve.New(worldState),
		World:     worldState,
		Config:    watcher.Current,
		Queue:     queueMgr,
		Player:    controller,
		Assets:    assets,
		Synth:     synth,
		Processor: processor,
		Reports:   reports,
		Metrics:   metrics,
	})

	printStartupSummary(cfg, synth != nil)

	g, gctx := errgroup.WithContext(ctx)

	// Tick loop: queue transitions, track volume math, gauge updates.
	g.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		var lastQueued, lastActive int64
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				c := watcher.Current()
				queueMgr.Tick(time.Now(), c.Synthesis.OnDemand)
				controller.Tick()
				if depth := int64(queueMgr.Depth()); depth != lastQueued {
					metrics.QueuedMessages.Add(gctx, depth-lastQueued)
					lastQueued = depth
				}
				if active := int64(controller.ActiveCount()); active != lastActive {
					metrics.ActiveTracks.Add(gctx, active-lastActive)
					lastActive = active
				}
			case ev := <-controller.Started():
				queueMgr.OnStarted(ev.Message)
			case ev := <-controller.Completed():
				queueMgr.OnCompleted(ev.Message, controller.IsPlaying(ev.Message.Source))
			}
		}
	})

	// HTTP: host ingestion, diagnostics, /metrics.
	if cfg.Server.ListenAddr != "" {
		checks := health.New(
			health.Checker{Name: "manifest", Check: func(context.Context) error {
				if manifests.Current() == nil {
					return errors.New("no manifest loaded")
				}
				return nil
			}},
		)
		srv := &http.Server{
			Addr: cfg.Server.ListenAddr,
			Handler: newServer(serverDeps{
				dispatcher: dispatcher,
				controller: controller,
				queue:      queueMgr,
				reports:    reports,
				world:      worldState,
			}).routes(metrics, checks),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	slog.Info("daemon ready, press Ctrl+C to shut down")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping…")
	controller.StopAll()
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires the shipped synthesis backends and
// transcode processors into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSynthesis("edge", func(cfg config.SynthesisConfig) (tts.Provider, error) {
		var opts []edge.Option
		if cfg.VoiceMale != "" || cfg.VoiceFemale != "" {
			opts = append(opts, edge.WithVoices(cfg.VoiceMale, cfg.VoiceFemale))
		}
		return edge.New(opts...), nil
	})

	reg.RegisterSynthesis("openai", func(cfg config.SynthesisConfig) (tts.Provider, error) {
		var opts []oaitts.Option
		if cfg.VoiceMale != "" || cfg.VoiceFemale != "" {
			opts = append(opts, oaitts.WithVoices(cfg.VoiceMale, cfg.VoiceFemale))
		}
		return oaitts.New(cfg.APIKey, opts...)
	})

	reg.RegisterSynthesis("remote", func(cfg config.SynthesisConfig) (tts.Provider, error) {
		var opts []remote.Option
		if cfg.APIKey != "" {
			opts = append(opts, remote.WithAPIKey(cfg.APIKey))
		}
		return remote.New(cfg.RemoteURL, opts...)
	})

	reg.RegisterTranscode("ffmpeg", func() (transcode.Processor, error) {
		return transcode.NewFFmpeg()
	})

	reg.RegisterTranscode("passthrough", func() (transcode.Processor, error) {
		return transcode.Passthrough{}, nil
	})
}

// buildSynthesis instantiates the configured synthesis backend. A missing
// or broken backend is not fatal: synthesis is a fallback, the daemon still
// serves pre-rendered lines.
func buildSynthesis(reg *config.Registry, cfg config.SynthesisConfig) tts.Provider {
	if cfg.Backend == "" {
		slog.Info("synthesis disabled")
		return nil
	}
	p, err := reg.CreateSynthesis(cfg)
	if err != nil {
		slog.Warn("synthesis backend unavailable", "backend", cfg.Backend, "err", err)
		return nil
	}
	if cfg.Fallback == "" || cfg.Fallback == cfg.Backend {
		slog.Info("synthesis backend ready", "backend", cfg.Backend)
		return p
	}

	fbCfg := cfg
	fbCfg.Backend = cfg.Fallback
	fb, err := reg.CreateSynthesis(fbCfg)
	if err != nil {
		slog.Warn("fallback backend unavailable", "backend", cfg.Fallback, "err", err)
		slog.Info("synthesis backend ready", "backend", cfg.Backend)
		return p
	}
	slog.Info("synthesis backend ready", "backend", cfg.Backend, "fallback", cfg.Fallback)
	return resilience.NewSynthesizer(slog.Default(),
		resilience.NamedProvider{Name: cfg.Backend, Provider: p},
		resilience.NamedProvider{Name: cfg.Fallback, Provider: fb},
	)
}

// buildProcessor prefers the ffmpeg processor (full filter-graph support)
// and falls back to the pass-through decoder when the binary is missing.
func buildProcessor(reg *config.Registry) transcode.Processor {
	p, err := reg.CreateTranscode("ffmpeg")
	if err != nil {
		slog.Warn("ffmpeg not found, voice effects disabled", "err", err)
		p, _ = reg.CreateTranscode("passthrough")
	}
	return p
}

// buildReporting assembles the configured report sinks. The returned close
// function (possibly nil) tears down the Postgres pool.
func buildReporting(ctx context.Context, cfg config.ReportingConfig, w world.Query, metrics *observe.Metrics) (*report.Service, func(), error) {
	var sinks []report.Sink
	var pgClose func()

	if cfg.Dir != "" {
		fs, err := report.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.UploadURL != "" {
		up, err := report.NewUploader(cfg.UploadURL)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, up)
	}
	if cfg.PostgresDSN != "" {
		pg, err := report.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
		pgClose = pg.Close
	}

	svc := report.New(w, slog.Default(), sinks,
		report.WithRecorder(func(sink string, ok bool) {
			if ok {
				metrics.RecordReport(context.Background(), sink)
			}
		}),
	)
	return svc, pgClose, nil
}

func printStartupSummary(cfg *config.Config, synthesis bool) {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║        aethervox   startup summary     ║")
	fmt.Println("╠════════════════════════════════════════╣")
	fmt.Printf("║  Manifest       : %-20s ║\n", trim(cfg.Manifest.Path, 20))
	fmt.Printf("║  Assets         : %-20s ║\n", trim(cfg.Manifest.AssetsDir, 20))
	backend := cfg.Synthesis.Backend
	if !synthesis {
		backend = "(disabled)"
	}
	fmt.Printf("║  Synthesis      : %-20s ║\n", trim(backend, 20))
	fmt.Printf("║  Talk / BTalk   : %-20s ║\n",
		onOff(cfg.Channels.Talk.Enabled)+" / "+onOff(cfg.Channels.BattleTalk.Enabled))
	fmt.Printf("║  Bubble / Chat  : %-20s ║\n",
		onOff(cfg.Channels.Bubble.Enabled)+" / "+onOff(cfg.Channels.Chat.Enabled))
	fmt.Printf("║  Reporting      : %-20s ║\n", onOff(cfg.Reporting.Enabled))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr    : %-20s ║\n", trim(cfg.Server.ListenAddr, 20))
	}
	fmt.Println("╚════════════════════════════════════════╝")
}

func trim(s string, n int) string {
	if len(s) > n {
		return s[:n-1] + "…"
	}
	return s
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
