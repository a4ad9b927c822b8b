// Package transport defines the injected SCPI transport capability the
// acquisition engine is built against (spec.md §4.1). The real
// USBTMC/serial framing is out of scope here — this package only
// describes the contract and ships a simulated implementation used by
// tests and the demo CLI.
package transport

// Transport is the capability consumed by internal/acquisition. It
// hides whatever ASCII SCPI channel (USBTMC, raw serial, TCP-over-LXI)
// actually carries the bytes.
//
// ReadData's return value is significant: n > 0 is a successful partial
// read, n == 0 means the current response is fully drained, and n < 0
// means a transient stall (e.g. a USBTMC refill pause) the caller should
// retry rather than treat as fatal.
type Transport interface {
	Send(cmd string) error

	GetString(query string) (string, error)
	GetInt(query string) (int, error)
	GetFloat(query string) (float64, error)
	GetBool(query string) (bool, error)

	ReadBegin() error
	ReadData(buf []byte) int
	ReadComplete() bool
}
