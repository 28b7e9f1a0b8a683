package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSharedKey = errors.New("shared key required when hmac is enabled")
	ErrAlreadyStarted   = errors.New("adapter already started")
	ErrNotStarted       = errors.New("adapter not started")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// InvalidStateTransitionError signals a lifecycle bug in the caller: the
// requested gate transition is not permitted from the current state. It is
// never swallowed.
type InvalidStateTransitionError struct {
	From SystemState
	To   SystemState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

func NewInvalidStateTransitionError(from, to SystemState) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{From: from, To: to}
}

func IsInvalidStateTransition(err error) bool {
	var transitionErr *InvalidStateTransitionError
	return errors.As(err, &transitionErr)
}

type UndefinedClusterViewReason int

const (
	ReasonRepositoryException UndefinedClusterViewReason = iota
	ReasonIsolatedFromTopology
	ReasonNoEstablishedView
)

func (r UndefinedClusterViewReason) String() string {
	switch r {
	case ReasonRepositoryException:
		return "repository_exception"
	case ReasonIsolatedFromTopology:
		return "isolated_from_topology"
	case ReasonNoEstablishedView:
		return "no_established_view"
	default:
		return "unknown"
	}
}

// UndefinedClusterViewError is returned by a ClusterViewService when the local
// cluster view cannot be computed. The orchestrator recovers from it by
// falling back to the last published view.
type UndefinedClusterViewError struct {
	Reason  UndefinedClusterViewReason
	Message string
}

func (e *UndefinedClusterViewError) Error() string {
	return fmt.Sprintf("undefined cluster view [%s]: %s", e.Reason, e.Message)
}

func NewUndefinedClusterViewError(reason UndefinedClusterViewReason, message string) *UndefinedClusterViewError {
	return &UndefinedClusterViewError{Reason: reason, Message: message}
}

func IsUndefinedClusterView(err error) bool {
	var viewErr *UndefinedClusterViewError
	return errors.As(err, &viewErr)
}

func IsIsolated(err error) bool {
	var viewErr *UndefinedClusterViewError
	return errors.As(err, &viewErr) && viewErr.Reason == ReasonIsolatedFromTopology
}

// ConnectorError wraps failures of the HTTP announcement exchange with the
// peer and operation that produced them.
type ConnectorError struct {
	Op   string
	Peer string
	Err  error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector[%s] %s: %v", e.Peer, e.Op, e.Err)
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

func NewConnectorError(peer, op string, err error) *ConnectorError {
	return &ConnectorError{Op: op, Peer: peer, Err: err}
}

func IsConnectorError(err error) bool {
	var connectorErr *ConnectorError
	return errors.As(err, &connectorErr)
}
