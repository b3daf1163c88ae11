package elamport

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"sync"

	promlog "github.com/prometheus/common/log"
)

// auditEntry is one delivered message copy, recorded by the transport for
// every send it fans out, in delivery order. At shutdown the audit log is
// sorted by ExtendedLamportOrder before it is written out, matching
// property 6 (ordering stability).
type auditEntry struct {
	message Message
}

// AuditLog is the transport-owned, append-only record of every message
// copy the transport has delivered. Appended to from every peer's
// goroutine via Transport.Send, so it must guard its own mutual
// exclusion — unlike the critical-section hook, this is an ordinary
// shared-data-structure lock, not a correctness property under test.
type AuditLog struct {
	mu      sync.Mutex
	entries []auditEntry
}

// NewAuditLog returns an empty AuditLog.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Append records a delivered message copy.
func (a *AuditLog) Append(m Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{message: m})
}

// Sorted returns a copy of the recorded messages ordered by
// ExtendedLamportOrder.
func (a *AuditLog) Sorted() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.message
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i].Timestamp, out[i].Sender, out[j].Timestamp, out[j].Sender)
	})
	return out
}

// WriteCSV writes the header and every recorded message, in
// ExtendedLamportOrder, to w. I/O failures are reported through the
// package logger and swallowed — they do not affect the simulation, per
// the error handling design.
func (a *AuditLog) WriteCSV(w io.Writer) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"messageType", "senderId", "receiverId", "timestamp"}); err != nil {
		promlog.Errorf("failed writing message log header: %v", err)
		return
	}
	for _, m := range a.Sorted() {
		if err := writer.Write(m.CSVRow()); err != nil {
			promlog.Errorf("failed writing message log row %#v: %v", m, err)
			return
		}
	}
}

// CriticalSectionLog is the transport-owned operations log for the
// critical-section hook. Its Write method holds its own lock purely to
// make file/slice appends safe; it is deliberately independent of
// whatever state the hook itself mutates, so it adds no exclusion to the
// property under test.
type CriticalSectionLog struct {
	mu      sync.Mutex
	nextOp  int
	entries []string
}

// NewCriticalSectionLog returns an empty CriticalSectionLog.
func NewCriticalSectionLog() *CriticalSectionLog {
	return &CriticalSectionLog{nextOp: 1}
}

// Write appends one "Operation N: Process P changed critical int from X to
// Y" line and returns the operation number assigned.
func (c *CriticalSectionLog) Write(peer, before, after int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	op := c.nextOp
	c.nextOp++
	c.entries = append(c.entries, fmt.Sprintf("Operation %d: Process %d changed critical int from %d to %d", op, peer, before, after))
	return op
}

// Count returns the number of recorded operations.
func (c *CriticalSectionLog) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a copy of the recorded operation lines, in the order
// they were written.
func (c *CriticalSectionLog) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// WriteText writes the header and every recorded operation line to w.
func (c *CriticalSectionLog) WriteText(w io.Writer) {
	c.mu.Lock()
	lines := make([]string, len(c.entries))
	copy(lines, c.entries)
	c.mu.Unlock()

	if _, err := fmt.Fprintln(w, "Operations at critical section:"); err != nil {
		promlog.Errorf("failed writing critical section log header: %v", err)
		return
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			promlog.Errorf("failed writing critical section log line %q: %v", line, err)
			return
		}
	}
}
