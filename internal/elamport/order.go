package elamport

// Less implements the ExtendedLamportOrder: a total order over (timestamp,
// peer id) pairs, lexicographic with the timestamp first and the peer id
// as tie-break. Used for both the per-peer request queue and the global
// audit log.
func Less(aTimestamp uint64, aPeer int, bTimestamp uint64, bPeer int) bool {
	if aTimestamp != bTimestamp {
		return aTimestamp < bTimestamp
	}
	return aPeer < bPeer
}
