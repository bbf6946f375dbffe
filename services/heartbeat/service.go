// Package heartbeat logs a liveness line at a fixed interval and publishes
// it on the bus.
package heartbeat

import (
	"context"
	"time"

	"thermoblink/bus"
	"thermoblink/logx"
	"thermoblink/types"
	"thermoblink/x/timex"
)

var (
	TopicHeartbeat = bus.T("status", "heartbeat")
	// TopicInterval accepts a time.Duration payload that replaces the
	// current interval.
	TopicInterval = bus.T("config", "heartbeat", "interval")
)

type Service struct {
	interval time.Duration
	log      logx.Logger
	conn     *bus.Connection

	started int64
	beats   uint32
}

func New(interval time.Duration, log logx.Logger, conn *bus.Connection) *Service {
	return &Service{interval: interval, log: log, conn: conn}
}

// Run loops until ctx is cancelled, responding to ticks and interval
// changes.
func (s *Service) Run(ctx context.Context) error {
	cfgSub := s.conn.Subscribe(TopicInterval)
	defer s.conn.Unsubscribe(cfgSub)

	s.started = timex.NowMs()
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat service stopping", "beats", s.beats)
			return nil
		case <-tick.C:
			s.beat()
		case msg := <-cfgSub.Channel():
			if d, ok := msg.Payload.(time.Duration); ok && d > 0 {
				s.interval = d
				tick.Reset(d)
				s.log.Info("Heartbeat interval set", "ms", d.Milliseconds())
			} else {
				s.log.Warn("ignoring heartbeat interval", "payload", msg.Payload)
			}
		}
	}
}

// SetInterval publishes d as the retained heartbeat interval, so a service
// that subscribes later still picks it up.
func SetInterval(conn *bus.Connection, d time.Duration) {
	conn.Publish(&bus.Message{Topic: TopicInterval, Payload: d, Retained: true})
}

func (s *Service) beat() {
	s.beats++
	hb := types.Heartbeat{Uptime: timex.Since(s.started), Beats: s.beats}
	s.log.Info("Heartbeat", "uptime_ms", hb.Uptime, "beats", hb.Beats)
	s.conn.Publish(&bus.Message{Topic: TopicHeartbeat, Payload: hb, Retained: true})
}
