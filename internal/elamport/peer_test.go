package elamport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeOutbox is a test double for the narrow sender interface a Peer
// talks to, letting peer.go's message-processing logic be exercised
// without spinning up a full Transport.
type fakeOutbox struct {
	mu  sync.Mutex
	out []Message
	cs  []int
}

func (f *fakeOutbox) Send(m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, m)
	return nil
}

func (f *fakeOutbox) CriticalSection(p *Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cs = append(f.cs, p.ID())
}

func (f *fakeOutbox) sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.out))
	copy(out, f.out)
	return out
}

func newTestPeer(id, n int) (*Peer, *fakeOutbox) {
	ob := &fakeOutbox{}
	p := NewPeer(id, n, ob, NewDefaultLogger(false))
	return p, ob
}

func TestPeer_RequestEnqueuesAndAcknowledges(t *testing.T) {
	p, ob := newTestPeer(1, 3)

	req, err := NewRequest(0, 3, 5)
	require.NoError(t, err)
	p.process(req)

	require.True(t, p.queue.Contains(0))
	sent := ob.sent()
	require.Len(t, sent, 1)
	require.Equal(t, Acknowledge, sent[0].Kind)
	require.Equal(t, 1, sent[0].Sender)
	require.Equal(t, 0, sent[0].Receiver)
	require.Greater(t, sent[0].Timestamp, uint64(5), "happens-before: clock after processing must exceed the message timestamp")
}

func TestPeer_PermissionPredicateRequiresAllAcksAndOwnHead(t *testing.T) {
	p, ob := newTestPeer(0, 3)
	p.issueRequest()
	require.True(t, p.queue.Contains(0))

	ack1, _ := NewAcknowledge(1, 0, 3, 1)
	p.process(ack1)
	require.Empty(t, ob.cs, "must not enter CS before all N-1 acks arrive")

	ack2, _ := NewAcknowledge(2, 0, 3, 1)
	p.process(ack2)
	require.Len(t, ob.cs, 1, "must enter CS once acks from all other peers arrive and own entry is at head")

	sent := ob.sent()
	last := sent[len(sent)-1]
	require.Equal(t, Release, last.Kind)
	require.Equal(t, 0, p.permissionsReceived, "ack counter resets on CS exit")
	require.Equal(t, 0, p.queue.Len(), "own entry popped after CS exit")
}

func TestPeer_PermissionPredicateWaitsForOwnQueueHead(t *testing.T) {
	p, ob := newTestPeer(1, 3)

	// Peer 0's earlier request sits ahead of peer 1's in the queue.
	earlier, _ := NewRequest(0, 3, 1)
	p.process(earlier)

	p.issueRequest() // peer 1's own request, timestamp > 1

	ack0, _ := NewAcknowledge(0, 1, 3, 2)
	p.process(ack0)
	ack2, _ := NewAcknowledge(2, 1, 3, 2)
	p.process(ack2)

	require.Empty(t, ob.cs, "must not enter CS while another peer's entry is at the head")
}

func TestPeer_ReleaseRemovesHeadAndReevaluates(t *testing.T) {
	p, ob := newTestPeer(1, 3)

	req0, _ := NewRequest(0, 3, 1)
	p.process(req0)
	p.issueRequest()

	ack0, _ := NewAcknowledge(0, 1, 3, 3)
	p.process(ack0)
	ack2, _ := NewAcknowledge(2, 1, 3, 3)
	p.process(ack2)
	require.Empty(t, ob.cs)

	rel0, _ := NewRelease(0, 3, 4)
	p.process(rel0)

	require.Len(t, ob.cs, 1, "popping the blocking head must let this peer's own entry through")
}

func TestPeer_ReleaseNotAtHeadPanics(t *testing.T) {
	p, _ := newTestPeer(1, 3)
	req0, _ := NewRequest(0, 3, 1)
	p.process(req0)

	relWrongSender, _ := NewRelease(2, 3, 5)
	require.Panics(t, func() { p.process(relWrongSender) }, "a RELEASE whose sender is not the queue head is a protocol invariant violation")
}

func TestPeer_RunCommandArmsNextLoopTurn(t *testing.T) {
	p, _ := newTestPeer(1, 3)
	require.False(t, p.armed)
	cmd, _ := NewRunCommand(0, 1, 3, 1)
	p.process(cmd)
	require.True(t, p.armed)
}

// TestPeer_ArmedRequestDeferredWhileOwnEntryOutstanding exercises the
// single-entry invariant (spec.md property 5) directly against the
// guard in tryFireArmedRequest: a RUN_COMMAND that arrives while this
// peer's own REQUEST is still outstanding must not issue a second one,
// and must stay armed so it fires once the cycle completes.
func TestPeer_ArmedRequestDeferredWhileOwnEntryOutstanding(t *testing.T) {
	p, ob := newTestPeer(1, 3)

	p.issueRequest()
	require.True(t, p.queue.Contains(1))

	cmd, _ := NewRunCommand(0, 1, 3, 5)
	p.process(cmd)
	require.True(t, p.armed)

	require.False(t, p.tryFireArmedRequest(), "must not fire a second REQUEST while the first is still outstanding")
	require.True(t, p.armed, "armed must stay set for a later retry")
	require.Equal(t, 1, p.queue.Len(), "peer's own entry must still appear exactly once")

	ack0, _ := NewAcknowledge(0, 1, 3, 6)
	p.process(ack0)
	ack2, _ := NewAcknowledge(2, 1, 3, 6)
	p.process(ack2)
	require.False(t, p.queue.Contains(1), "own entry popped once the CS is granted and released")

	require.True(t, p.tryFireArmedRequest(), "once idle, the deferred REQUEST must fire")
	require.False(t, p.armed)
	require.Equal(t, 1, p.queue.Len())
	require.True(t, p.queue.Contains(1))

	requestCount := 0
	for _, m := range ob.sent() {
		if m.Kind == Request {
			requestCount++
		}
	}
	require.Equal(t, 2, requestCount, "exactly one REQUEST per completed cycle: the original plus the deferred one")
}

func TestPeer_DeliverIsSafeDuringProcessing(t *testing.T) {
	p, _ := newTestPeer(1, 3)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, _ := NewRunCommand(0, 1, 3, uint64(i+1))
			p.Deliver(m)
		}(i)
	}
	wg.Wait()
	drained := 0
	for {
		if _, ok := p.inbox.pop(); !ok {
			break
		}
		drained++
	}
	require.Equal(t, 50, drained)
}
