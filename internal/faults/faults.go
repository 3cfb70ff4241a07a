package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure along the mint-and-pay pipeline. Every error
// surfaced to a user maps to exactly one fixed message per kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoProvider
	KindUserRejected
	KindWrongNetwork
	KindInsufficientFunds
	KindContractRevert
	KindValidation
	KindSignature
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNoProvider:
		return "no_provider"
	case KindUserRejected:
		return "user_rejected"
	case KindWrongNetwork:
		return "wrong_network"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindContractRevert:
		return "contract_revert"
	case KindValidation:
		return "validation"
	case KindSignature:
		return "signature"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the underlying cause. Revert errors also
// carry the decoded reason string when one was available.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// New wraps cause with the given kind.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Newf builds a fault with a formatted reason and no cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Revert builds a ContractRevert fault carrying the decoded reason.
func Revert(reason string, cause error) *Error {
	return &Error{Kind: KindContractRevert, Reason: reason, cause: cause}
}

// KindOf extracts the Kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Classify maps raw provider and node error strings onto the taxonomy.
// Anything already classified passes through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied") || strings.Contains(msg, "code 4001"):
		return New(KindUserRejected, err)
	case strings.Contains(msg, "insufficient funds"):
		return New(KindInsufficientFunds, err)
	case strings.Contains(msg, "execution reverted"):
		return Revert(revertReason(err.Error()), err)
	case strings.Contains(msg, "wrong network") || strings.Contains(msg, "chain mismatch"):
		return New(KindWrongNetwork, err)
	default:
		return New(KindUpstream, err)
	}
}

// revertReason pulls the human-readable reason out of a node error string of
// the form "execution reverted: <reason>". Empty when the node gave none.
func revertReason(msg string) string {
	const marker = "execution reverted"
	idx := strings.Index(strings.ToLower(msg), marker)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(marker):]
	rest = strings.TrimLeft(rest, ": ")
	return strings.TrimSpace(rest)
}

// UserMessage returns the one fixed, user-facing message for a kind. Raw
// provider strings never reach the user.
func UserMessage(kind Kind) string {
	switch kind {
	case KindNoProvider:
		return "No wallet detected. Install a browser wallet such as MetaMask to mint."
	case KindUserRejected:
		return "Request cancelled in your wallet. You can try again."
	case KindWrongNetwork:
		return "Your wallet is on the wrong network. Approve the network switch and try again."
	case KindInsufficientFunds:
		return "Your wallet does not hold enough ETH for this mint."
	case KindContractRevert:
		return "The mint transaction was rejected by the contract."
	case KindValidation:
		return "The request was invalid. Check the quantity and wallet address."
	case KindSignature:
		return "The request could not be authenticated."
	case KindUpstream:
		return "A service we depend on is unavailable. Please try again shortly."
	default:
		return "Something went wrong. Please try again."
	}
}

// Transient reports whether a failure of this kind allows an immediate retry
// with the same UI state. Fatal configuration problems (no wallet installed)
// get a persistent instructional message instead of a transient toast.
func Transient(kind Kind) bool {
	switch kind {
	case KindNoProvider:
		return false
	default:
		return true
	}
}
