package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tcshaper/internal/app"
	"tcshaper/internal/config"
	"tcshaper/internal/detector"
	"tcshaper/internal/metrics"
	"tcshaper/internal/store"
	"tcshaper/internal/traffic"
	"tcshaper/internal/web"
)

const usage = `usage: tcshaper [flags] [command]

commands:
  reset        reset the configured interfaces and print the report (default)
  report       print the report without changing anything
  apply        shape one interface (-iface, -rate, -loss, -duplicate, -delay, -protocol)
  clear        delete the root qdisc of one interface (-iface)
  status       print tc qdisc/class/filter output of one interface (-iface)
  show         print live and saved settings of one interface (-iface), or all saved settings
  interfaces   list interfaces
  show-config  print the effective configuration
  serve        run the web UI and /metrics endpoint

flags:
`

type options struct {
	configPath string
	logLevel   string
	interfaces string
	iface      string
	rate       string
	loss       string
	duplicate  string
	delay      string
	protocol   string
	listen     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("tcshaper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "configuration file (default: $"+config.EnvConfigPath+" or "+config.DefaultConfigPath+")")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	fs.StringVar(&opts.interfaces, "interfaces", "", "comma separated interfaces for reset/report (overrides config)")
	fs.StringVar(&opts.iface, "iface", "", "interface for apply, clear, status and show")
	fs.StringVar(&opts.rate, "rate", "", "HTB rate for apply, e.g. 10mbit")
	fs.StringVar(&opts.loss, "loss", "", "netem loss percentage for apply")
	fs.StringVar(&opts.duplicate, "duplicate", "", "netem duplicate percentage for apply")
	fs.StringVar(&opts.delay, "delay", "", "netem delay in milliseconds for apply")
	fs.StringVar(&opts.protocol, "protocol", "", "restrict apply to tcp or udp")
	fs.StringVar(&opts.listen, "listen", "", "listen address for serve (overrides config)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	command := "reset"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args()[1:], " "))
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := newLogger(stderr, cfg.Log)

	ctx, cancel := signalContext()
	defer cancel()

	if err := dispatch(ctx, command, opts, cfg, logger, stdout); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		logger.Error("command failed", slog.String("command", command), slog.String("error", err.Error()))
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func loadConfig(opts options) (config.Config, error) {
	path, err := config.Resolve(opts.configPath)
	if err != nil {
		return config.Default(), err
	}
	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.interfaces != "" {
		cfg.Interfaces = splitList(opts.interfaces)
	}
	if opts.listen != "" {
		cfg.Server.Listen = opts.listen
	}
	return cfg, cfg.Validate()
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func dispatch(ctx context.Context, command string, opts options, cfg config.Config, logger *slog.Logger, stdout io.Writer) error {
	switch command {
	case "show-config":
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	case "reset", "report", "apply", "clear", "status", "show", "interfaces", "serve":
	default:
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}

	if err := detector.ValidateRuntime(logger); err != nil {
		return err
	}
	if command == "apply" || command == "serve" {
		if err := detector.ValidateKernelModules(logger, detector.ShapingModules); err != nil {
			return err
		}
	}

	reg := metrics.New()
	settings := traffic.Settings{
		CommandTimeout: cfg.Timeouts.Command,
		RemoveIfb:      cfg.ShouldRemoveIfb(),
		Recorder:       reg,
	}

	var shaper *traffic.Shaper
	if cfg.Netns != "" {
		ns, err := traffic.OpenNamespace(cfg.Netns)
		if err != nil {
			return err
		}
		defer ns.Close()
		logger.Info("using network namespace", slog.String("netns", cfg.Netns))
		shaper = traffic.NewShaperWithDependencies(logger, settings, ns.Netlink, ns.Executor)
	} else {
		shaper = traffic.NewShaper(logger, settings)
	}

	svc := app.NewService(app.Dependencies{
		Shaper:           shaper,
		Store:            store.New(cfg.StateFile),
		Metrics:          reg,
		Logger:           logger,
		Interfaces:       cfg.Interfaces,
		OperationTimeout: cfg.Timeouts.Operation,
	})

	switch command {
	case "reset":
		return svc.ResetAll(ctx, stdout)
	case "report":
		return svc.ReportAll(ctx, stdout)
	case "interfaces":
		names, err := svc.Interfaces(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "serve":
		return serve(ctx, cfg, logger, svc, reg)
	}

	if command == "show" && opts.iface == "" {
		return showSaved(svc, stdout)
	}
	if opts.iface == "" {
		return fmt.Errorf("%s requires -iface: %w", command, errUsage)
	}
	if err := config.ValidateInterfaceName(opts.iface); err != nil {
		return err
	}

	switch command {
	case "apply":
		req, err := traffic.NewShapingRequest(opts.iface, opts.rate, opts.loss, opts.duplicate, opts.delay, opts.protocol)
		if err != nil {
			return err
		}
		out, err := svc.Apply(ctx, req)
		fmt.Fprint(stdout, out)
		return err
	case "clear":
		out, err := svc.Clear(ctx, opts.iface)
		fmt.Fprint(stdout, out)
		return err
	case "status":
		out, err := svc.Status(ctx, opts.iface)
		fmt.Fprintln(stdout, out)
		return err
	case "show":
		return showConfig(ctx, svc, opts.iface, stdout)
	}
	return nil
}

func showConfig(ctx context.Context, svc *app.Service, iface string, w io.Writer) error {
	live := svc.CurrentConfig(ctx, iface)
	printConfig(w, "live", live)

	saved, ok, err := svc.SavedConfig(iface)
	if err != nil {
		return err
	}
	if ok {
		printConfig(w, "saved", saved)
	} else {
		fmt.Fprintln(w, "saved: none")
	}
	return nil
}

func showSaved(svc *app.Service, w io.Writer) error {
	saved, err := svc.SavedConfigs()
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		fmt.Fprintln(w, "saved: none")
		return nil
	}
	for _, cfg := range saved {
		printConfig(w, "saved", cfg)
	}
	return nil
}

func printConfig(w io.Writer, label string, cfg traffic.InterfaceConfig) {
	orDash := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	fmt.Fprintf(w, "%s: interface=%s rate=%s loss=%s duplicate=%s delay_ms=%s protocol=%s\n",
		label, cfg.Interface, orDash(cfg.Rate), orDash(cfg.Loss), orDash(cfg.Duplicate), orDash(cfg.Delay), orDash(cfg.Protocol))
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, svc *app.Service, reg *metrics.Registry) error {
	mux := http.NewServeMux()
	web.NewHandler(svc, logger).RegisterRoutes(mux)
	mux.Handle(cfg.Server.MetricsPath, reg.Handler())

	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	}

	err = app.Serve(ctx, logger, listener, mux)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
