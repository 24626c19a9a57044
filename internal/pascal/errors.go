// Package pascal implements the exact-layout binary record codec used to
// interoperate with the legacy Pascal BBS's on-disk files: user lists,
// board lists, message index/header records, and file-catalog records.
//
// Every record is described once, as an ordered field list, via a type's
// Fields method written against an IO visitor. The same method drives both
// encoding and decoding, the way internal/jam/message.go drives a fixed
// field order through binary.Read and binary.Write — generalized here into
// a single dual-purpose walk instead of two parallel call chains.
package pascal

import "fmt"

// InvalidLayoutError reports that a reader was too short to decode a record,
// or that a bitset/short-string field could not be parsed.
type InvalidLayoutError struct {
	Detail string
}

func (e *InvalidLayoutError) Error() string {
	return fmt.Sprintf("pascal: invalid layout: %s", e.Detail)
}

func errInvalidLayout(format string, args ...any) error {
	return &InvalidLayoutError{Detail: fmt.Sprintf(format, args...)}
}
