// Package bus is a small in-process topic bus used to fan telemetry out of
// the reader tasks. Topics are token paths; subscriptions may use "+" (one
// token) and "#" (the rest of the path) wildcards. Retained messages are
// replayed to late subscribers. Delivery never blocks the publisher: a full
// subscriber queue drops its oldest message.
package bus

import (
	"strings"
	"sync"
)

const (
	wildOne  = "+"
	wildRest = "#"
)

// Topic is a sequence of tokens, e.g. T("telemetry", "mcu", "temperature").
type Topic []string

func T(tokens ...string) Topic { return Topic(tokens) }

func (t Topic) String() string { return strings.Join(t, "/") }

// Match reports whether topic t is selected by the subscription pattern p.
func (p Topic) Match(t Topic) bool {
	for i, tok := range p {
		if tok == wildRest {
			return true
		}
		if i >= len(t) {
			return false
		}
		if tok != wildOne && tok != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	pattern Topic
	ch      chan *Message
	conn    *Connection
}

func (s *Subscription) Topic() Topic             { return s.pattern }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// trie keyed by pattern tokens; wildcard tokens are ordinary children.
type node struct {
	children map[string]*node
	subs     []*Subscription
}

type Bus struct {
	mu       sync.Mutex
	root     *node
	retained map[string]*Message
	qLen     int
}

// New creates a bus whose subscriptions buffer queueLen messages each.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		root:     &node{},
		retained: map[string]*Message{},
		qLen:     queueLen,
	}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription. A retained message
// with a nil payload clears the retained value for its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
	b.walk(b.root, msg.Topic, func(s *Subscription) { deliver(s, msg) })
}

// walk visits every subscription whose pattern matches t.
func (b *Bus) walk(n *node, t Topic, visit func(*Subscription)) {
	if n.children == nil && len(t) > 0 {
		return
	}
	if rest, ok := n.children[wildRest]; ok {
		for _, s := range rest.subs {
			visit(s)
		}
	}
	if len(t) == 0 {
		for _, s := range n.subs {
			visit(s)
		}
		return
	}
	if c, ok := n.children[t[0]]; ok {
		b.walk(c, t[1:], visit)
	}
	if c, ok := n.children[wildOne]; ok {
		b.walk(c, t[1:], visit)
	}
}

func deliver(s *Subscription, msg *Message) {
	select {
	case s.ch <- msg:
		return
	default:
	}
	// Queue full: drop the oldest, then retry once.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- msg:
	default:
	}
}

func (b *Bus) addSubscription(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range s.pattern {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		c, ok := n.children[tok]
		if !ok {
			c = &node{}
			n.children[tok] = c
		}
		n = c
	}
	n.subs = append(n.subs, s)

	for _, m := range b.retained {
		if s.pattern.Match(m.Topic) {
			deliver(s, m)
		}
	}
}

func (b *Bus) removeSubscription(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	path := make([]*node, 0, len(s.pattern))
	for _, tok := range s.pattern {
		c, ok := n.children[tok]
		if !ok {
			return
		}
		path = append(path, n)
		n = c
	}
	for i, x := range n.subs {
		if x == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty nodes bottom-up.
	for i := len(s.pattern) - 1; i >= 0; i-- {
		parent, tok := path[i], s.pattern[i]
		c := parent.children[tok]
		if len(c.subs) != 0 || len(c.children) != 0 {
			break
		}
		delete(parent.children, tok)
	}
	close(s.ch)
}

// Connection groups the subscriptions of one service so they can be torn
// down together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(pattern Topic) *Subscription {
	s := &Subscription{
		pattern: append(Topic(nil), pattern...),
		ch:      make(chan *Message, c.bus.qLen),
		conn:    c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	c.bus.addSubscription(s)
	return s
}

// Unsubscribe removes s and closes its channel. Unknown subscriptions are
// ignored, so calling it twice is safe.
func (c *Connection) Unsubscribe(s *Subscription) {
	c.mu.Lock()
	found := false
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if found {
		c.bus.removeSubscription(s)
	}
}

// Disconnect closes all subscriptions owned by c.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.bus.removeSubscription(s)
	}
}
