// Package telemetry is the single consumer of reader output on the bus. It
// logs every reading and hands it to an optional sink (the host simulator
// uses this to build statistics).
package telemetry

import (
	"context"
	"sync/atomic"

	"thermoblink/bus"
	"thermoblink/logx"
	"thermoblink/types"
	"thermoblink/x/conv"
)

var TopicAll = bus.T("telemetry", "#")

// Sink receives every telemetry message, in order, on the service goroutine.
type Sink func(*bus.Message)

type Service struct {
	conn *bus.Connection
	log  logx.Logger
	sink Sink

	received atomic.Uint32
}

func New(conn *bus.Connection, log logx.Logger, sink Sink) *Service {
	return &Service{conn: conn, log: log, sink: sink}
}

func (s *Service) Received() uint32 { return s.received.Load() }

func (s *Service) Run(ctx context.Context) error {
	sub := s.conn.Subscribe(TopicAll)
	defer s.conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			s.received.Add(1)
			s.logMessage(msg)
			if s.sink != nil {
				s.sink(msg)
			}
		}
	}
}

func (s *Service) logMessage(msg *bus.Message) {
	topic := msg.Topic.String()
	switch p := msg.Payload.(type) {
	case types.TemperatureReading:
		if p.Err != "" {
			s.log.Debug("telemetry", "topic", topic, "seq", p.Seq, "err", p.Err)
			return
		}
		s.log.Debug("telemetry", "topic", topic, "seq", p.Seq, "celsius", conv.Deci(p.DeciC))
	case types.HumidityReading:
		s.log.Debug("telemetry", "topic", topic, "seq", p.Seq, "rh", conv.Centi(p.RHx100))
	default:
		s.log.Debug("telemetry", "topic", topic, "payload", p)
	}
}
