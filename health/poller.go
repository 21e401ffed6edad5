package health

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/terrasense/mowkit/logger"
)

// Poller runs CheckAll on a fixed schedule.
type Poller struct {
	monitor  *Monitor
	interval time.Duration
	cron     *cron.Cron
	entryID  cron.EntryID
	log      *logger.Logger
}

// NewPoller creates a poller sweeping all registered checkers every interval.
func NewPoller(monitor *Monitor, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		monitor:  monitor,
		interval: interval,
		cron:     cron.New(),
		log:      logger.Get("health"),
	}
}

// Start begins the periodic sweep.
func (p *Poller) Start() error {
	id, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), p.monitor.CheckAll)
	if err != nil {
		return fmt.Errorf("scheduling health sweep: %w", err)
	}
	p.entryID = id
	p.cron.Start()
	p.log.Info("health poller started", logger.Fields("interval", p.interval.String()))
	return nil
}

// Stop halts the sweep. In-flight checks are allowed to finish.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.log.Info("health poller stopped")
}
