package elamport

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	promlog "github.com/prometheus/common/log"
)

// Transport is the fan-out/unicast dispatcher, peer registry, and
// simulation lifecycle owner. It is intentionally a trivial delivery
// layer — the algorithm's correctness lives in the peers, not here.
//
// Grounded on core.Transport's Broadcast/Unicast/Listen/Close shape, but
// in-process: no network transport backs it, per spec.md's Non-goals.
type Transport struct {
	n        int
	duration uint64

	peers []*Peer

	audit  *AuditLog
	csLog  *CriticalSectionLog
	shared SharedCounter

	log     Logger
	stopped atomic.Bool

	// runID tags this run in console output (the run's start line and
	// the driver's summary line); the CSV/TXT log files do not carry it.
	runID string
}

// NewTransport builds a Transport for n peers with the given time
// horizon and logger, and constructs the N peers themselves.
func NewTransport(n int, duration uint64, log Logger) (*Transport, error) {
	if n < 2 {
		return nil, fmt.Errorf("elamport: process_count must be >= 2, got %d", n)
	}
	if duration == 0 {
		return nil, fmt.Errorf("elamport: duration must be > 0")
	}

	t := &Transport{
		n:        n,
		duration: duration,
		audit:    NewAuditLog(),
		csLog:    NewCriticalSectionLog(),
		log:      log,
		runID:    uuid.NewString(),
	}

	t.peers = make([]*Peer, n)
	for i := 0; i < n; i++ {
		t.peers[i] = NewPeer(i, n, t, log)
	}
	return t, nil
}

// ProcessCount returns the total number of peers, immutable for the
// simulation's lifetime.
func (t *Transport) ProcessCount() int {
	return t.n
}

// Peer returns the peer registered under id, or nil if out of range.
// Exposed for tests driving individual peers directly.
func (t *Transport) Peer(id int) *Peer {
	if id < 0 || id >= t.n {
		return nil
	}
	return t.peers[id]
}

// Send implements the time-horizon gate and fan-out described in
// spec.md §4.4: if m's timestamp has reached the configured duration, every
// peer is stopped and nothing is delivered — this is how the simulation
// terminates. Once the gate has tripped, every later Send is dropped the
// same way, whatever its timestamp. Otherwise ACKNOWLEDGE/RUN_COMMAND are
// delivered to their single named receiver; REQUEST/RELEASE are fanned out
// to every peer but the sender, each getting its own per-receiver copy
// tagged for the audit log.
func (t *Transport) Send(m Message) error {
	if m.Timestamp >= t.duration || t.stopped.Load() {
		t.stopAll()
		return nil
	}

	if m.Sender < 0 || m.Sender >= t.n {
		return fmt.Errorf("%w: %d", ErrSenderOutOfRange, m.Sender)
	}

	switch m.Kind {
	case Acknowledge, RunCommand:
		if m.Receiver < 0 || m.Receiver >= t.n {
			return fmt.Errorf("%w: %d", ErrReceiverOutOfRange, m.Receiver)
		}
		t.deliver(m, m.Receiver)
	case Request, Release:
		for r := 0; r < t.n; r++ {
			if r == m.Sender {
				continue
			}
			t.deliver(m.withReceiver(r), r)
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

func (t *Transport) deliver(m Message, receiver int) {
	t.audit.Append(m)
	t.peers[receiver].Deliver(m)
}

// stopAll stops every peer exactly once, even if several peers trip the
// time-horizon gate concurrently.
func (t *Transport) stopAll() {
	if !t.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, p := range t.peers {
		p.Stop()
	}
}

// CriticalSection is the extension point peers call to "do work" under
// mutual exclusion. The shared-counter mutation itself is deliberately
// unguarded — see SharedCounter — while the operations log append is
// guarded for its own sake (ordinary shared-log-append safety, not an
// exclusion mechanism for the hook).
func (t *Transport) CriticalSection(p *Peer) {
	before, after := t.shared.Apply(p.ID())
	t.csLog.Write(p.ID(), int(before), int(after))
}

// RunID returns the identifier generated for this simulation run, used to
// tag console and log output when correlating multiple runs.
func (t *Transport) RunID() string {
	return t.runID
}

// Run starts every peer's processing loop concurrently and blocks until
// all have exited. Logs are written separately, by FlushLogs.
//
// If a peer's loop panics (a protocol invariant violation), every peer is
// stopped and, once all loops have exited, the first such panic is
// re-raised on the caller's goroutine.
func (t *Transport) Run() {
	t.log.Infof("run %s: starting %d peers, duration %d", t.runID, t.n, t.duration)
	var wg sync.WaitGroup
	var once sync.Once
	var failure interface{}
	for _, p := range t.peers {
		wg.Add(1)
		go func(p *Peer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { failure = r })
					t.stopAll()
				}
			}()
			p.Run()
		}(p)
	}
	wg.Wait()
	if failure != nil {
		panic(failure)
	}
}

// FlushLogs writes the message log and critical-section log to the given
// paths. I/O failures are reported via the package-level logger and
// swallowed — they do not affect the algorithm, per spec.md §7.
func (t *Transport) FlushLogs(messageLogPath, csLogPath string) {
	if f, err := os.Create(messageLogPath); err != nil {
		promlog.Errorf("failed opening message log %s: %v", messageLogPath, err)
	} else {
		t.audit.WriteCSV(f)
		if err := f.Close(); err != nil {
			promlog.Errorf("failed closing message log %s: %v", messageLogPath, err)
		}
	}

	if f, err := os.Create(csLogPath); err != nil {
		promlog.Errorf("failed opening critical section log %s: %v", csLogPath, err)
	} else {
		t.csLog.WriteText(f)
		if err := f.Close(); err != nil {
			promlog.Errorf("failed closing critical section log %s: %v", csLogPath, err)
		}
	}
}

// SharedValue reads the final value of the critical-section shared
// counter. Only meaningful after Run has returned.
func (t *Transport) SharedValue() int32 {
	return t.shared.Value()
}

// CriticalSectionCount returns how many times the critical section was
// entered over the simulation's lifetime.
func (t *Transport) CriticalSectionCount() int {
	return t.csLog.Count()
}

// CriticalSectionEntries returns the formatted critical-section log
// lines, in entry order. Exposed for inspection and tests; the console
// and file forms are produced from the same underlying log.
func (t *Transport) CriticalSectionEntries() []string {
	return t.csLog.Entries()
}

// MessageLog returns every message copy the transport has delivered, in
// ExtendedLamportOrder — the same view written to the CSV message log.
func (t *Transport) MessageLog() []Message {
	return t.audit.Sorted()
}
