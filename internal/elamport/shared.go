package elamport

// SharedCounter is the trivial "increment or decrement a shared integer"
// routine standing in for real critical-section work (spec.md §1). Its
// Apply method deliberately carries no lock: mutual exclusion on this
// value is supposed to be *derived* from the mutual-exclusion protocol,
// not imposed by the transport. A conformant implementation must pass a
// race-detecting test exercising this exact method concurrently from
// every peer — if the protocol is correct, the race detector finds
// nothing; if it isn't, this is where it shows up.
type SharedCounter struct {
	value int32
}

// Apply mutates the shared integer based on peer id parity — increment
// for even ids, decrement for odd — and returns the value before and
// after the mutation.
func (c *SharedCounter) Apply(peerID int) (before, after int32) {
	before = c.value
	if peerID%2 == 0 {
		c.value++
	} else {
		c.value--
	}
	after = c.value
	return before, after
}

// Value reads the current value. Only safe to call once no peer is still
// running.
func (c *SharedCounter) Value() int32 {
	return c.value
}
