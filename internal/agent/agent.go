// Package agent owns device enumeration, subsystem init/teardown, and
// signal-driven shutdown.
package agent

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/xilinx-labs/sn-ctl-core/internal/cms"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/host"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/port"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/swtch"
	"github.com/xilinx-labs/sn-ctl-core/internal/pipeline"
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
	"github.com/xilinx-labs/sn-ctl-core/internal/stats"
)

// Device is one PCIe accelerator: a mapped BAR2 region, the CMS
// client, the line drivers, the pipelines attached to it, and its
// stats tree.
type Device struct {
	ID    int32
	BusID string

	BAR2 *register.Bar2
	CMS  *cms.Client

	Ports     map[int32]*port.Port
	Modules   map[int32]*Module
	NumHosts  int
	Host      *host.Host
	Switch    *swtch.Switch
	Pipelines map[int32]*pipeline.Pipeline
	Stats     *stats.Tree

	pollers   []*stats.Poller
	closeBar2 func() error
}

// StartStatsPollers spawns one poller per domain of the device's
// stats tree, each latching at period; they run until Shutdown.
func (d *Device) StartStatsPollers(period time.Duration, log *slog.Logger) {
	if d.Stats == nil {
		return
	}
	for _, name := range d.Stats.Domains() {
		p := stats.NewPoller(d.Stats, name, period, log)
		p.Start()
		d.pollers = append(d.pollers, p)
	}
}

// Agent is the process-wide registry of attached devices.
type Agent struct {
	mu      sync.RWMutex
	log     *slog.Logger
	devices map[int32]*Device
	order   []int32
}

// New constructs an empty Agent.
func New(log *slog.Logger) *Agent {
	return &Agent{log: log, devices: make(map[int32]*Device)}
}

// AddDevice registers a fully constructed Device under id.
func (a *Agent) AddDevice(d *Device) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.devices[d.ID]; !exists {
		a.order = append(a.order, d.ID)
	}
	a.devices[d.ID] = d
}

// Device looks up one device by ID.
func (a *Agent) Device(id int32) (*Device, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.devices[id]
	return d, ok
}

// Devices returns every registered device in registration order.
func (a *Agent) Devices() []*Device {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Device, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.devices[id])
	}
	return out
}

// ForEachDevice resolves the `dev_id == -1` fan-out
// convention: devID >= 0 targets exactly that device, -1 targets
// every registered device. fn's error does not stop the fan-out; the
// caller collects one result per device.
func (a *Agent) ForEachDevice(devID int32, fn func(*Device) error) map[int32]error {
	results := make(map[int32]error)
	if devID != -1 {
		d, ok := a.Device(devID)
		if !ok {
			results[devID] = fmt.Errorf("invalid device id %d", devID)
			return results
		}
		results[devID] = fn(d)
		return results
	}
	for _, d := range a.Devices() {
		results[d.ID] = fn(d)
	}
	return results
}

// Shutdown tears down every device: disables CMS, closes pipeline
// façades, and unmaps BAR2. Errors are logged, not
// propagated: shutdown is best-effort.
func (a *Agent) Shutdown() {
	for _, d := range a.Devices() {
		for _, p := range d.pollers {
			p.Stop()
		}
		if d.CMS != nil {
			d.CMS.Disable()
		}
		for pid, p := range d.Pipelines {
			if err := p.Facade.Close(); err != nil {
				a.log.Warn("pipeline close failed", "device", d.ID, "pipeline", pid, "err", err)
			}
		}
		if d.closeBar2 != nil {
			if err := d.closeBar2(); err != nil {
				a.log.Warn("bar2 unmap failed", "device", d.ID, "err", err)
			}
		}
	}
}

// WaitForShutdownSignal blocks until SIGINT or SIGTERM, then calls
// Shutdown.
func (a *Agent) WaitForShutdownSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	a.log.Info("shutdown signal received")
	a.Shutdown()
}
