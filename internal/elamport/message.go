package elamport

import "fmt"

// Kind identifies the role a Message plays in the mutual-exclusion
// discipline.
type Kind uint8

const (
	Request Kind = iota
	Acknowledge
	Release
	RunCommand
)

func (k Kind) String() string {
	switch k {
	case Request:
		return "REQUEST"
	case Acknowledge:
		return "ACKNOWLEDGE"
	case Release:
		return "RELEASE"
	case RunCommand:
		return "RUN_COMMAND"
	default:
		return "UNKNOWN"
	}
}

// Broadcast is the sentinel receiver value for a REQUEST/RELEASE template
// before the transport fans it out into per-receiver copies.
const Broadcast = -1

// Message is an immutable record exchanged between peers: kind, sender,
// receiver (or the Broadcast sentinel for a REQUEST/RELEASE template), and
// the sender's clock value at send time.
//
// A constructed Message is not reassigned by this package after
// construction. The one exception is the transport's fan-out of a
// broadcast template, which produces a *copy* tagged with a concrete
// receiver id rather than mutating the template in place — see
// Message.withReceiver.
type Message struct {
	Kind      Kind
	Sender    int
	Receiver  int
	Timestamp uint64
}

func validateSender(id, n int) error {
	if id < 0 || id >= n {
		return fmt.Errorf("%w: sender id %d not in [0,%d)", ErrSenderOutOfRange, id, n)
	}
	return nil
}

func validateReceiver(id, n int) error {
	if id < 0 || id >= n {
		return fmt.Errorf("%w: receiver id %d not in [0,%d)", ErrReceiverOutOfRange, id, n)
	}
	return nil
}

// NewRequest builds a broadcast REQUEST from sender, valid against a
// process count of n.
func NewRequest(sender, n int, timestamp uint64) (Message, error) {
	if err := validateSender(sender, n); err != nil {
		return Message{}, err
	}
	return Message{Kind: Request, Sender: sender, Receiver: Broadcast, Timestamp: timestamp}, nil
}

// NewRelease builds a broadcast RELEASE from sender, valid against a
// process count of n.
func NewRelease(sender, n int, timestamp uint64) (Message, error) {
	if err := validateSender(sender, n); err != nil {
		return Message{}, err
	}
	return Message{Kind: Release, Sender: sender, Receiver: Broadcast, Timestamp: timestamp}, nil
}

// NewAcknowledge builds a unicast ACKNOWLEDGE from sender to receiver,
// both valid against a process count of n.
func NewAcknowledge(sender, receiver, n int, timestamp uint64) (Message, error) {
	if err := validateSender(sender, n); err != nil {
		return Message{}, err
	}
	if err := validateReceiver(receiver, n); err != nil {
		return Message{}, err
	}
	return Message{Kind: Acknowledge, Sender: sender, Receiver: receiver, Timestamp: timestamp}, nil
}

// NewRunCommand builds a unicast RUN_COMMAND from sender to receiver, both
// valid against a process count of n.
func NewRunCommand(sender, receiver, n int, timestamp uint64) (Message, error) {
	if err := validateSender(sender, n); err != nil {
		return Message{}, err
	}
	if err := validateReceiver(receiver, n); err != nil {
		return Message{}, err
	}
	return Message{Kind: RunCommand, Sender: sender, Receiver: receiver, Timestamp: timestamp}, nil
}

// withReceiver returns a copy of m tagged with a concrete receiver id,
// leaving m itself (the broadcast template) untouched. Used only by the
// transport during fan-out.
func (m Message) withReceiver(receiver int) Message {
	m.Receiver = receiver
	return m
}

// IsBroadcast reports whether m is a REQUEST/RELEASE template still
// carrying the Broadcast sentinel.
func (m Message) IsBroadcast() bool {
	return m.Receiver == Broadcast
}

// CSVRow renders m in the message log's serialised form:
// kind,sender,receiver,timestamp.
func (m Message) CSVRow() []string {
	return []string{
		m.Kind.String(),
		fmt.Sprintf("%d", m.Sender),
		fmt.Sprintf("%d", m.Receiver),
		fmt.Sprintf("%d", m.Timestamp),
	}
}
