package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	terr "tcshaper/internal/errors"
	"tcshaper/internal/traffic"
)

// ShapingService is the traffic layer as seen by the application.
type ShapingService interface {
	Interfaces(ctx context.Context) ([]string, error)
	Reset(ctx context.Context, ifaces []string) ([]traffic.ResetResult, error)
	ResetInterface(ctx context.Context, iface string) traffic.ResetResult
	Report(ctx context.Context, ifaces []string) ([]traffic.InterfaceReport, error)
	Apply(ctx context.Context, req traffic.ShapingRequest) (string, error)
	Clear(ctx context.Context, iface string) (string, error)
	Status(ctx context.Context, iface string) (string, error)
	CurrentConfig(ctx context.Context, iface string) traffic.InterfaceConfig
}

// ConfigStore persists the last applied settings per interface.
type ConfigStore interface {
	Get(iface string) (traffic.InterfaceConfig, bool, error)
	All() ([]traffic.InterfaceConfig, error)
	Save(iface string, cfg traffic.InterfaceConfig) error
	Delete(iface string) error
}

// OperationRecorder observes completed operations.
type OperationRecorder interface {
	ObserveOperation(operation string, elapsed time.Duration, err error)
	SetShaped(iface string, shaped bool)
}

// Dependencies groups what the Service needs.
type Dependencies struct {
	Shaper           ShapingService
	Store            ConfigStore
	Metrics          OperationRecorder
	Logger           *slog.Logger
	Interfaces       []string
	OperationTimeout time.Duration
}

// Service runs shaping operations and keeps the store and metrics in step
// with what was done to each interface.
type Service struct {
	shaper     ShapingService
	store      ConfigStore
	metrics    OperationRecorder
	logger     *slog.Logger
	interfaces []string
	timeout    time.Duration
}

// NewService constructs a Service. Store and Metrics are optional.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if deps.OperationTimeout <= 0 {
		deps.OperationTimeout = 45 * time.Second
	}
	return &Service{
		shaper:     deps.Shaper,
		store:      deps.Store,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		interfaces: append([]string(nil), deps.Interfaces...),
		timeout:    deps.OperationTimeout,
	}
}

// ConfiguredInterfaces returns the interfaces ResetAll and ReportAll act on.
func (s *Service) ConfiguredInterfaces() []string {
	return append([]string(nil), s.interfaces...)
}

func (s *Service) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, time.Since(start), err)
	}
}

func (s *Service) setShaped(iface string, shaped bool) {
	if s.metrics != nil {
		s.metrics.SetShaped(iface, shaped)
	}
}

func (s *Service) forget(iface string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(iface); err != nil {
		s.logger.Warn("failed to drop saved config",
			slog.String("interface", iface),
			slog.String("error", err.Error()))
	}
}

// ResetAll resets the configured interfaces in order, then writes the reset
// messages and the post-reset report to w. The report is written even when
// some interfaces failed to reset; the aggregated reset error is returned.
func (s *Service) ResetAll(ctx context.Context, w io.Writer) (err error) {
	start := time.Now()
	defer func() { s.observe("reset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, resetErr := s.shaper.Reset(ctx, s.interfaces)
	for _, r := range results {
		if r.Err == nil {
			s.setShaped(r.Interface, false)
			s.forget(r.Interface)
			continue
		}
		s.logger.Error("interface reset failed", terr.AttrsToArgs(
			append(terr.LogAttrs(r.Err, terr.CategoryRecoverable), slog.String("interface", r.Interface)))...)
	}
	if err := traffic.WriteResets(w, results); err != nil {
		return fmt.Errorf("write reset summary: %w", err)
	}
	if errors.Is(resetErr, context.Canceled) || errors.Is(resetErr, context.DeadlineExceeded) {
		return resetErr
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if err := s.writeReport(ctx, w); err != nil {
		return errors.Join(resetErr, err)
	}
	return resetErr
}

// ReportAll writes the report for the configured interfaces to w.
func (s *Service) ReportAll(ctx context.Context, w io.Writer) (err error) {
	start := time.Now()
	defer func() { s.observe("report", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.writeReport(ctx, w)
}

func (s *Service) writeReport(ctx context.Context, w io.Writer) error {
	reports, err := s.shaper.Report(ctx, s.interfaces)
	if writeErr := traffic.WriteReports(w, reports); writeErr != nil {
		return fmt.Errorf("write report: %w", writeErr)
	}
	return err
}

// Interfaces lists the links present on the host.
func (s *Service) Interfaces(ctx context.Context) ([]string, error) {
	return s.shaper.Interfaces(ctx)
}

// Apply shapes req.Interface and records the request in the store.
func (s *Service) Apply(ctx context.Context, req traffic.ShapingRequest) (out string, err error) {
	start := time.Now()
	defer func() { s.observe("apply", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err = s.shaper.Apply(ctx, req)
	if err != nil {
		return out, err
	}
	s.setShaped(req.Interface, true)
	if s.store != nil {
		if err := s.store.Save(req.Interface, req.Config()); err != nil {
			s.logger.Warn("failed to save config",
				slog.String("interface", req.Interface),
				slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// ResetInterface resets a single interface.
func (s *Service) ResetInterface(ctx context.Context, iface string) traffic.ResetResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.shaper.ResetInterface(ctx, iface)
	s.observe("reset", start, result.Err)
	if result.Err == nil {
		s.setShaped(iface, false)
		s.forget(iface)
	}
	return result
}

// Clear deletes the root qdisc of iface.
func (s *Service) Clear(ctx context.Context, iface string) (out string, err error) {
	start := time.Now()
	defer func() { s.observe("clear", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err = s.shaper.Clear(ctx, iface)
	if err == nil {
		s.setShaped(iface, false)
		s.forget(iface)
	}
	return out, err
}

// Status returns the tc show output for iface.
func (s *Service) Status(ctx context.Context, iface string) (out string, err error) {
	start := time.Now()
	defer func() { s.observe("status", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.shaper.Status(ctx, iface)
}

// CurrentConfig parses the live tc state of iface.
func (s *Service) CurrentConfig(ctx context.Context, iface string) traffic.InterfaceConfig {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.shaper.CurrentConfig(ctx, iface)
}

// SavedConfigs returns every saved config, sorted by interface.
func (s *Service) SavedConfigs() ([]traffic.InterfaceConfig, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.All()
}

// SavedConfig returns what tcshaper last applied to iface, if anything.
func (s *Service) SavedConfig(iface string) (traffic.InterfaceConfig, bool, error) {
	if s.store == nil {
		return traffic.InterfaceConfig{}, false, nil
	}
	return s.store.Get(iface)
}
