package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/rulegrid/internal/logging"
)

// Command names a top-level operation.
type Command string

const (
	CommandInitialize Command = "initialize"
	CommandLaunch     Command = "launch"
	CommandMigrate    Command = "migrate"
)

// Request carries the arguments of a command. Granularity is used by
// initialize and launch; Version overrides the dispatcher's target version
// for migrate.
type Request struct {
	Granularity string `json:"granularity"`
	Version     string `json:"version,omitempty"`
}

// Response is what a command produced.
type Response struct {
	Command Command       `json:"command"`
	Report  *LaunchReport `json:"report,omitempty"`
	Applied []string      `json:"applied,omitempty"`
}

// Handler runs one command.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Dispatcher maps commands to handlers and runs at most one at a time.
type Dispatcher struct {
	slot     chan struct{} // holds one token while a command runs
	handlers map[Command]Handler
}

// NewDispatcher wires the service's operations. targetVersion is the
// version migrate moves to when a request names none.
func NewDispatcher(svc *Service, targetVersion string) *Dispatcher {
	return &Dispatcher{
		slot: make(chan struct{}, 1),
		handlers: map[Command]Handler{
			CommandInitialize: func(ctx context.Context, req Request) (*Response, error) {
				if err := svc.Initialize(ctx, req.Granularity); err != nil {
					return nil, err
				}
				return &Response{Command: CommandInitialize}, nil
			},
			CommandLaunch: func(ctx context.Context, req Request) (*Response, error) {
				report, err := svc.Launch(ctx, req.Granularity)
				if err != nil {
					return nil, err
				}
				return &Response{Command: CommandLaunch, Report: report}, nil
			},
			CommandMigrate: func(ctx context.Context, req Request) (*Response, error) {
				target := req.Version
				if target == "" {
					target = targetVersion
				}
				applied, err := svc.Migrate(ctx, target)
				if err != nil {
					return nil, err
				}
				return &Response{Command: CommandMigrate, Applied: applied}, nil
			},
		},
	}
}

// Dispatch runs cmd, waiting while another command is in progress. If ctx
// ends before the command gets its turn, Dispatch returns ctx.Err() and
// the handler never runs.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, req Request) (*Response, error) {
	h, ok := d.handlers[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}

	logger := logging.WithFields(ctx, "command", string(cmd), "trigger", TriggerFromContext(ctx))

	select {
	case d.slot <- struct{}{}:
	case <-ctx.Done():
		commandTotal.WithLabelValues(string(cmd), "canceled").Inc()
		logger.Warn("command abandoned while waiting for another to finish", "error", ctx.Err())
		return nil, ctx.Err()
	}
	defer func() { <-d.slot }()

	start := time.Now()

	resp, err := h(ctx, req)

	commandDuration.WithLabelValues(string(cmd)).Observe(time.Since(start).Seconds())
	if err != nil {
		commandTotal.WithLabelValues(string(cmd), "error").Inc()
		logger.Error("command failed", "error", err, "granularity", req.Granularity)
		return nil, err
	}
	commandTotal.WithLabelValues(string(cmd), "ok").Inc()
	logger.Debug("command completed", "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// Commands returns the dispatchable command names, sorted.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, 0, len(d.handlers))
	for c := range d.handlers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
