package elamport

// Clock is a Lamport logical clock. The zero value is a clock reading 0,
// ready to use.
//
// A Clock is owned by exactly one Peer and is mutated only from that
// peer's processing loop; it carries no lock and no back-reference to its
// owner, unlike the source this protocol is adapted from, which ties each
// clock to its peer. The peer id accompanies a clock reading only at the
// send sites that need it.
type Clock struct {
	t uint64
}

// Tick increments the clock and returns the new value. Called before every
// send and before entering the critical section.
func (c *Clock) Tick() uint64 {
	c.t++
	return c.t
}

// Observe merges an incoming timestamp into the clock: t := max(t, m).
// Called on every receive, before the event-tick for handling that receive.
func (c *Clock) Observe(m uint64) {
	if m > c.t {
		c.t = m
	}
}

// Now returns the current clock value without mutating it.
func (c *Clock) Now() uint64 {
	return c.t
}
