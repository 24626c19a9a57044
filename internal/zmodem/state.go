package zmodem

import "fmt"

// State is one node of the Zmodem session state machine.
type State int

const (
	Idle State = iota
	InitSent
	InitReceived
	FileHeaderSent
	DataTransfer
	FileComplete
	SessionComplete
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case InitSent:
		return "InitSent"
	case InitReceived:
		return "InitReceived"
	case FileHeaderSent:
		return "FileHeaderSent"
	case DataTransfer:
		return "DataTransfer"
	case FileComplete:
		return "FileComplete"
	case SessionComplete:
		return "SessionComplete"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether s is SessionComplete or Error; no further
// transitions are valid once terminal.
func (s State) IsTerminal() bool { return s == SessionComplete || s == Error }

// IsActive reports whether a transfer is in progress in state s.
func (s State) IsActive() bool {
	switch s {
	case InitSent, InitReceived, FileHeaderSent, DataTransfer:
		return true
	default:
		return false
	}
}

// CanSendData reports whether data blocks may be emitted from state s.
func (s State) CanSendData() bool { return s == DataTransfer }

// validTransitions enumerates every legal (from, to) pair. Any pair not
// present here is invalid; Error is reachable from any state but is
// listed explicitly for clarity rather than handled as a wildcard, so the
// table stays the single source of truth for "is this edge legal".
var validTransitions = map[State]map[State]bool{
	Idle:           {InitSent: true, InitReceived: true, Error: true},
	InitSent:       {InitReceived: true, Error: true},
	InitReceived:   {FileHeaderSent: true, SessionComplete: true, Error: true},
	FileHeaderSent: {DataTransfer: true, InitReceived: true, Error: true},
	DataTransfer:   {FileComplete: true, Error: true},
	FileComplete:   {InitReceived: true, SessionComplete: true, Error: true},
	SessionComplete: {},
	Error:          {},
}

// FileInfo describes the file currently being transferred.
type FileInfo struct {
	Name          string
	Size          int64
	ModTime       int64 // Unix seconds
	Mode          uint32
	Serial        uint32
	FilesRemain   uint32
	BytesRemain   int64
}

// NegotiatedParams is the conjunction of sender/receiver capabilities
// computed during negotiation.
type NegotiatedParams struct {
	UseCRC32      bool
	EscapeControl bool
	Escape8Bit    bool
	BufferSize    uint32
	AllowResume   bool
}

// Machine is the Zmodem session state machine. It is owned by a single
// session task and never shared, per the concurrency model: no lock
// guards it.
type Machine struct {
	state       State
	negotiated  *NegotiatedParams
	currentFile *FileInfo
	position    int64
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Negotiated returns the negotiated parameters, or nil if negotiation
// has not completed.
func (m *Machine) Negotiated() *NegotiatedParams { return m.negotiated }

// CurrentFile returns the file currently in flight, or nil.
func (m *Machine) CurrentFile() *FileInfo { return m.currentFile }

// Position returns the current byte offset within CurrentFile.
func (m *Machine) Position() int64 { return m.position }

// SetNegotiated records the negotiated parameters.
func (m *Machine) SetNegotiated(p NegotiatedParams) { m.negotiated = &p }

// SetCurrentFile records the file about to be transferred and resets the
// byte position to zero.
func (m *Machine) SetCurrentFile(f FileInfo) {
	m.currentFile = &f
	m.position = 0
}

// ClearCurrentFile drops the in-flight file once a transfer completes.
func (m *Machine) ClearCurrentFile() { m.currentFile = nil }

// SetPosition updates the byte offset, e.g. after a resume negotiation.
func (m *Machine) SetPosition(pos int64) { m.position = pos }

// Advance transitions to newState, or panics if the edge is not in
// validTransitions — the implementer's side of the "illegal transitions
// impossible to construct" requirement: callers are expected to check
// CanAdvance first when the edge is data-dependent, so reaching an
// invalid edge here is a programming error, not a protocol event.
func (m *Machine) Advance(newState State) {
	if !m.CanAdvance(newState) {
		panic(fmt.Sprintf("zmodem: illegal state transition %s -> %s", m.state, newState))
	}
	m.state = newState
}

// CanAdvance reports whether newState is a legal successor to the current
// state.
func (m *Machine) CanAdvance(newState State) bool {
	edges, ok := validTransitions[m.state]
	if !ok {
		return false
	}
	return edges[newState]
}
