package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/FlyingDododo/6dof-application/pkg/config"
	"github.com/FlyingDododo/6dof-application/pkg/driver"
	"github.com/FlyingDododo/6dof-application/pkg/logger"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/ui"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		return runTUI([]string{}, stdout, stderr)
	}

	switch args[0] {
	case "tui":
		return runTUI(args[1:], stdout, stderr)
	case "run":
		return runHeadless(args[1:], stdout, stderr)
	case "encode":
		return runEncode(args[1:], stdout, stderr)
	case "decode":
		return runDecode(args[1:], stdout, stderr)
	case "config":
		return runConfig(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

// chairFlags are shared by every command that opens a session.
type chairFlags struct {
	configPath string
	noLogFile  bool
	ov         config.Overrides
}

func bindChairFlags(fs *flag.FlagSet) *chairFlags {
	f := &chairFlags{}
	fs.StringVar(&f.configPath, "config", config.DefaultConfigPath, "TOML config path")
	fs.StringVar(&f.ov.Host, "host", "", "chair host (overrides config)")
	fs.IntVar(&f.ov.Port, "port", 0, "chair UDP port")
	fs.StringVar(&f.ov.Variant, "variant", "", "protocol variant: standard or alt")
	fs.StringVar(&f.ov.SendInterval, "interval", "", "send interval, e.g. 50ms")
	fs.StringVar(&f.ov.TickPolicy, "policy", "", "tick policy: reset or carry")
	fs.StringVar(&f.ov.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.ov.LogFormat, "log-format", "", "text or json")
	fs.StringVar(&f.ov.LogDir, "log-dir", "", "directory for per-session JSONL packet logs")
	fs.BoolVar(&f.noLogFile, "no-log-file", false, "do not write a JSONL packet log")
	fs.StringVar(&f.ov.TelemetryAddr, "telemetry", "", "Foxglove websocket address, e.g. 127.0.0.1:8765")
	fs.StringVar(&f.ov.MetricsAddr, "metrics", "", "Prometheus listen address, e.g. :9100")
	return f
}

// load resolves the config file, then CHAIR_* variables, then flags.
func (f *chairFlags) load() (config.Config, error) {
	cfg, _, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Override(f.ov); err != nil {
		return config.Config{}, err
	}
	if f.noLogFile {
		cfg.Log.Dir = ""
	}
	return cfg, nil
}

func runTUI(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := bindChairFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := flags.load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The terminal belongs to the UI; process logs would tear the screen.
	feed := ui.NewFeed(ui.DefaultFeedSize)
	sess, err := openSession(ctx, cfg, logger.Discard(), feed)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer sess.Close()

	model := ui.NewModel(sess.link, feed, ui.Options{
		Host:          cfg.Chair.Host,
		Port:          cfg.Chair.Port,
		FrameInterval: cfg.FrameInterval(),
		SliderStep:    float32(cfg.UI.SliderStep),
	})
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintln(stderr, "ui:", err)
		return 1
	}
	return 0
}

func runHeadless(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := bindChairFlags(fs)
	sweep := fs.Bool("sweep", false, "rock pitch, roll and yaw with slow sine waves")
	presetName := fs.String("preset", "", "apply a preset after connecting: forward, backward, left_turn, right_turn")
	duration := fs.Duration("duration", 0, "stop after this long (default: until interrupted)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := flags.load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}

	var preset motion.Preset
	if *presetName != "" {
		if preset, err = motion.ParsePreset(*presetName); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	log := logger.NewSlog(stderr, cfg.Log.Level, cfg.Log.Format)
	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer sess.Close()

	if err := sess.link.Connect(cfg.Chair.Host, cfg.Chair.Port); err != nil {
		return 1
	}
	if preset != "" {
		if err := sess.link.ApplyPreset(preset); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	opts := []driver.Option{driver.WithFrameInterval(driver.DefaultFrameInterval)}
	if *sweep {
		opts = append(opts, driver.WithStep(driver.NewSweep(sess.link.Motion()).Step))
	}
	loop := driver.NewLoop(sess.link, opts...)
	started := time.Now()
	loopErr := loop.Run(ctx)

	// Close sends the neutral pose while the session is still up.
	if err := sess.link.Close(); err != nil {
		log.Warn("release chair", "error", err)
	}
	log.Info("run finished", "frames", loop.Frames(), "elapsed", time.Since(started).Round(time.Millisecond))
	if loopErr != nil {
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  chairctl [tui] [--config chairctl.toml] [--host ip] [--port 20000] [--variant standard|alt]")
	fmt.Fprintln(w, "  chairctl run [--sweep] [--preset name] [--duration 10s] [--interval 50ms] [--policy reset|carry]")
	fmt.Fprintln(w, "  chairctl encode [--variant standard|alt] [--pitch n] [--roll n] [--yaw n] [--sway n] [--surge n] [--heave n] [--preset name]")
	fmt.Fprintln(w, "  chairctl decode <hex>")
	fmt.Fprintln(w, "  chairctl config init [--path chairctl.toml] [--force]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui      interactive console (default)")
	fmt.Fprintln(w, "  run      headless session, stops on Ctrl-C and releases the chair")
	fmt.Fprintln(w, "  encode   print the packet for a pose")
	fmt.Fprintln(w, "  decode   print the pose carried by a packet")
	fmt.Fprintln(w, "  config   write the default config file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags --log-level, --log-format, --log-dir, --no-log-file, --telemetry and --metrics apply to tui and run.")
	fmt.Fprintln(w, "Environment: CHAIR_HOST, CHAIR_PORT, CHAIR_VARIANT, CHAIR_SEND_INTERVAL, CHAIR_TICK_POLICY,")
	fmt.Fprintln(w, "  CHAIR_LOG_LEVEL, CHAIR_LOG_FORMAT, CHAIR_LOG_DIR, CHAIR_TELEMETRY_ADDR, CHAIR_METRICS_ADDR")
}
