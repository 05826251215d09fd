// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
)

// PingChecker reports a dependency unhealthy when its ping fails.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker wraps ping. A nil ping means the dependency has no probe
// and is always healthy.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if c.ping == nil {
		return CheckResult{Status: StatusHealthy, Message: "no probe"}
	}
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// QueueStats is what LoopChecker needs from an event loop.
type QueueStats struct {
	Depth    int
	Capacity int
	Sessions int
}

// LoopChecker probes an event loop by round-tripping through it. A loop that
// answers but whose queue is nearly full reports degraded.
type LoopChecker struct {
	name  string
	probe func(ctx context.Context) (QueueStats, error)
}

// NewLoopChecker wraps probe.
func NewLoopChecker(name string, probe func(ctx context.Context) (QueueStats, error)) *LoopChecker {
	return &LoopChecker{name: name, probe: probe}
}

func (c *LoopChecker) Name() string {
	return c.name
}

func (c *LoopChecker) Check(ctx context.Context) CheckResult {
	st, err := c.probe(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	msg := fmt.Sprintf("queue %d/%d, sessions %d", st.Depth, st.Capacity, st.Sessions)
	if st.Capacity > 0 && st.Depth*10 >= st.Capacity*9 {
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}
