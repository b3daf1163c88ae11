package elamport

import (
	"sync/atomic"
	"time"
)

// idlePause is the brief wait taken when a peer's loop finds nothing to
// do. The algorithm tolerates any scheduling granularity here; this only
// keeps an idle peer from spinning.
const idlePause = time.Millisecond

// sender is the narrow slice of Transport a Peer needs: broadcasting and
// unicasting messages, and running the critical-section hook. A separate
// interface keeps Peer testable without a full Transport.
type sender interface {
	Send(m Message) error
	CriticalSection(p *Peer)
}

// Peer is a single participant in the simulation: it owns a logical
// clock, a request queue, an inbox, and an acknowledgement counter, and
// runs the REQUEST/ACKNOWLEDGE/RELEASE protocol in its own goroutine.
//
// Every field below except the inbox and the atomic stopped flag is
// touched only from the goroutine running Run; Deliver, which writes only
// to the inbox, and Stop, which sets only the stopped flag, are the points
// where another goroutine may reach into a Peer.
type Peer struct {
	id int
	n  int

	clock  Clock
	queue  *RequestQueue
	inbox  *inbox
	outbox sender
	log    Logger

	permissionsReceived int
	armed               bool
	stopped             atomic.Bool
}

// NewPeer constructs a Peer with id in [0,n), talking through outbox.
func NewPeer(id, n int, outbox sender, log Logger) *Peer {
	return &Peer{
		id:     id,
		n:      n,
		queue:  NewRequestQueue(),
		inbox:  newInbox(),
		outbox: outbox,
		log:    log,
	}
}

// ID returns the peer's immutable id.
func (p *Peer) ID() int { return p.id }

// Deliver hands a message off to the peer. Safe to call concurrently with
// Run; it only appends to the inbox. No clock update happens here —
// delivery is not yet an "event".
func (p *Peer) Deliver(m Message) {
	p.inbox.push(m)
}

// Stop requests that the peer's loop exit on its next check.
func (p *Peer) Stop() {
	p.stopped.Store(true)
}

// QueueLen reports the current size of the peer's request queue. Used to
// report the final queue size on shutdown and to check queue-convergence
// in tests.
func (p *Peer) QueueLen() int {
	return p.queue.Len()
}

// Run is the peer's processing loop: single-threaded with respect to all
// state but the inbox. Each iteration pops and processes at most one
// inbox message, then — if armed by a RUN_COMMAND and the peer's own
// request cycle has completed — initiates a local REQUEST and forwards
// RUN_COMMAND to the ring successor, then checks for a stop request.
//
// A RUN_COMMAND that arrives while this peer's own entry is still
// outstanding in its request queue (REQUESTED or GRANTED, per spec.md
// §4.3's state machine) stays armed rather than firing immediately: the
// ring can wrap back to a peer before that peer's prior REQUEST has been
// granted and popped, and issuing a second REQUEST while the first is
// still outstanding would insert a second (id, ts) entry for the same
// peer, violating the single-entry invariant (spec.md property 5) and
// letting ACKs from the two overlapping requests conflate under one
// permissionsReceived counter. The deferred REQUEST/forward fires on a
// later iteration, once the peer's own id is no longer in its queue.
//
// Peer 0 is special: on entry, before the loop, it issues the first
// REQUEST and forwards the first RUN_COMMAND, seeding the ring.
func (p *Peer) Run() {
	if p.id == 0 {
		p.issueRequest()
		p.forwardRunCommand()
	}

	for {
		processed := false
		if m, ok := p.inbox.pop(); ok {
			p.process(m)
			processed = true
		}

		if p.tryFireArmedRequest() {
			processed = true
		}

		if p.stopped.Load() {
			p.log.Stopped(p.clock.Now(), p.id, p.QueueLen())
			return
		}

		if !processed {
			time.Sleep(idlePause)
		}
	}
}

// process dispatches a single inbox message, always preceded by a
// clock merge and tick, per spec.md §4.3.
func (p *Peer) process(m Message) {
	p.clock.Observe(m.Timestamp)
	p.clock.Tick()

	switch m.Kind {
	case Request:
		p.log.Action(p.clock.Now(), p.id, "received", Request)
		p.queue.Insert(m.Sender, m.Timestamp)
		p.sendAcknowledge(m.Sender)
	case Acknowledge:
		p.log.Action(p.clock.Now(), p.id, "received", Acknowledge)
		p.permissionsReceived++
		p.tryEnterCriticalSection()
	case Release:
		p.log.Action(p.clock.Now(), p.id, "received", Release)
		if err := p.queue.PopIfHead(m.Sender); err != nil {
			p.log.Errorf("peer %d: invariant violation handling RELEASE from %d: %v", p.id, m.Sender, err)
			panic(err)
		}
		if head, _, ok := p.queue.Head(); ok && head == p.id {
			p.tryEnterCriticalSection()
		}
	case RunCommand:
		p.log.Action(p.clock.Now(), p.id, "received", RunCommand)
		// Arming only records that a REQUEST is owed; Run's loop defers
		// acting on it until this peer's own cycle is idle (see Run).
		p.armed = true
	default:
		p.log.Warnf("peer %d: unknown message kind %v", p.id, m.Kind)
	}
}

// tryFireArmedRequest issues the REQUEST a RUN_COMMAND armed, provided
// this peer's own entry is not already outstanding in its request queue.
// It reports whether it fired. A RUN_COMMAND that arrives mid-cycle
// leaves armed set so a later call — once the peer's prior request has
// been granted and popped — can fire it instead; see Run's doc comment
// for why firing unconditionally would duplicate this peer's queue entry.
func (p *Peer) tryFireArmedRequest() bool {
	if !p.armed || p.queue.Contains(p.id) {
		return false
	}
	p.issueRequest()
	p.forwardRunCommand()
	p.armed = false
	return true
}

// sendAcknowledge replies to a REQUEST from sender with the current clock
// value.
func (p *Peer) sendAcknowledge(to int) {
	ack, err := NewAcknowledge(p.id, to, p.n, p.clock.Now())
	if err != nil {
		p.log.Errorf("peer %d: failed building ACKNOWLEDGE to %d: %v", p.id, to, err)
		return
	}
	p.log.Action(p.clock.Now(), p.id, "send", Acknowledge)
	_ = p.outbox.Send(ack)
}

// issueRequest ticks the clock, enqueues this peer's own entry, and
// broadcasts REQUEST at the new timestamp.
func (p *Peer) issueRequest() {
	now := p.clock.Tick()
	p.queue.Insert(p.id, now)
	req, err := NewRequest(p.id, p.n, now)
	if err != nil {
		p.log.Errorf("peer %d: failed building REQUEST: %v", p.id, err)
		return
	}
	p.log.Action(now, p.id, "send", Request)
	_ = p.outbox.Send(req)
}

// forwardRunCommand sends RUN_COMMAND to the ring successor (id+1 mod N).
// Harness-only: arms request initiation in implementations that drive the
// ring this way; see spec.md §9 on the alternative workload-generator
// design.
func (p *Peer) forwardRunCommand() {
	target := (p.id + 1) % p.n
	now := p.clock.Tick()
	cmd, err := NewRunCommand(p.id, target, p.n, now)
	if err != nil {
		p.log.Errorf("peer %d: failed building RUN_COMMAND: %v", p.id, err)
		return
	}
	p.log.Action(now, p.id, "send", RunCommand)
	_ = p.outbox.Send(cmd)
}

// tryEnterCriticalSection evaluates the permission predicate: all other
// peers have acknowledged this peer's latest REQUEST, and this peer's own
// entry sits at the head of its request queue. When both hold, it enters
// the critical section, resets its acknowledgement counter, broadcasts
// RELEASE at a freshly ticked timestamp, and pops its own head entry.
func (p *Peer) tryEnterCriticalSection() {
	head, _, ok := p.queue.Head()
	if !ok || head != p.id || p.permissionsReceived != p.n-1 {
		return
	}

	p.outbox.CriticalSection(p)

	p.permissionsReceived = 0
	now := p.clock.Tick()
	rel, err := NewRelease(p.id, p.n, now)
	if err != nil {
		p.log.Errorf("peer %d: failed building RELEASE: %v", p.id, err)
		return
	}
	p.log.Action(now, p.id, "send", Release)
	_ = p.outbox.Send(rel)

	if err := p.queue.PopIfHead(p.id); err != nil {
		p.log.Errorf("peer %d: invariant violation popping own head after CS: %v", p.id, err)
		panic(err)
	}
}
