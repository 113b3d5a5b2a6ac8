package traffic

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vishvananda/netlink"

	terr "tcshaper/internal/errors"
)

// Shaper drives ip and tc to reset, shape and inspect network interfaces.
type Shaper struct {
	logger         *slog.Logger
	netlink        NetlinkClient
	executor       CommandExecutor
	recorder       Recorder
	commandTimeout time.Duration
	removeIfb      bool
}

// NewShaper constructs a Shaper bound to the host network namespace.
func NewShaper(logger *slog.Logger, settings Settings) *Shaper {
	return NewShaperWithDependencies(logger, settings, defaultNetlinkClient{}, processExecutor{})
}

// NewShaperWithDependencies constructs a Shaper with injected dependencies.
func NewShaperWithDependencies(logger *slog.Logger, settings Settings, netlinkClient NetlinkClient, executor CommandExecutor) *Shaper {
	settings = settings.withDefaults()
	if netlinkClient == nil {
		netlinkClient = defaultNetlinkClient{}
	}
	return &Shaper{
		logger:         logger,
		netlink:        netlinkClient,
		executor:       ensureExecutor(executor),
		recorder:       settings.Recorder,
		commandTimeout: settings.CommandTimeout,
		removeIfb:      settings.RemoveIfb,
	}
}

// Interfaces lists the names of all links in kernel index order.
func (s *Shaper) Interfaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	links, err := s.netlink.LinkList()
	if err != nil {
		return nil, terr.New(
			terr.CategoryCritical,
			fmt.Errorf("list links: %w", err),
			terr.ErrorContext{Operation: "link_list"},
		)
	}
	attrs := make([]*netlink.LinkAttrs, 0, len(links))
	for _, link := range links {
		if a := link.Attrs(); a != nil && a.Name != "" {
			attrs = append(attrs, a)
		}
	}
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Index < attrs[j].Index })

	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return names, nil
}
