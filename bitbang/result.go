package bitbang

import (
	"github.com/mklimuk/weatherstation"
)

// Status codes synthesized on the host side of a transaction.
const (
	CodeNotOpen     = -1
	CodeBadProgram  = -2
	CodeWriteFailed = -3
	CodeReadFailed  = -4
	CodeCanceled    = -5
	// CodeLinkFailed reports a broken connection to a remote bus daemon.
	CodeLinkFailed = -6
)

type Status int

const (
	NotReady Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "transport error"
	default:
		return "not ready"
	}
}

// Result is the outcome of one transaction as seen by a driver.
type Result struct {
	Status Status
	// Code is the raw transport status; negative when Status is Failed.
	Code int
	Data []byte
}

// FromZip turns a transport (status, data) pair into a Result.
func FromZip(code int, data []byte) Result {
	if code < 0 {
		return Result{Status: Failed, Code: code}
	}
	if code < len(data) {
		data = data[:code]
	}
	return Result{Status: Ready, Code: code, Data: data}
}

func NotReadyResult() Result {
	return Result{Status: NotReady}
}

func (r Result) Ready() bool {
	return r.Status == Ready
}

// Err returns a weatherstation.TransportError for failed transactions.
func (r Result) Err() error {
	if r.Status != Failed {
		return nil
	}
	return weatherstation.TransportError{Code: r.Code}
}
