package transport

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/smartcast/internal/wire"
)

// Error types for device operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection reset, TLS failure, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeParse indicates a response that could not be interpreted
	ErrTypeParse
	// ErrTypeRejected indicates the device answered but STATUS.RESULT was absent or not SUCCESS
	ErrTypeRejected
	// ErrTypeInvalidArgument indicates a caller-supplied value failed local validation
	ErrTypeInvalidArgument
	// ErrTypeNotFound indicates a named input or setting is missing from the device listing
	ErrTypeNotFound
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeRejected:
		return "Device Rejection"
	case ErrTypeInvalidArgument:
		return "Invalid Argument"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred while talking to a device
type DeviceError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Host           string              // Device host (for context)
	Result         string              // STATUS.RESULT reported by the device (rejections only)
	Body           *wire.Body          // Full device response (rejections only)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Result != "" {
		msg += fmt.Sprintf(" (result: %s)", e.Result)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, host string) *DeviceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message, host string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, host)
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, Host: host}
	}
	classified.Message = message
	return classified
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewRejectedError creates a device rejection carrying the full response
func NewRejectedError(message string, body *wire.Body) *DeviceError {
	result, _ := body.Result()
	return &DeviceError{
		Type:    ErrTypeRejected,
		Message: message,
		Result:  result,
		Body:    body,
	}
}

// NewInvalidArgumentError creates a local validation error
func NewInvalidArgumentError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeInvalidArgument,
		Message: message,
	}
}

// NewNotFoundError creates a lookup failure
func NewNotFoundError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeNotFound,
		Message: message,
	}
}

// CheckResult returns STATUS.RESULT when it is SUCCESS and a rejection otherwise
func CheckResult(op string, body *wire.Body) (string, error) {
	result, ok := body.Result()
	if !ok {
		return "", NewRejectedError(op+": device did not report a result", body)
	}
	if result != wire.ResultSuccess {
		return result, NewRejectedError(op+": device rejected request", body)
	}
	return result, nil
}

func errorType(err error) (ErrorType, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type, true
	}
	return ErrTypeUnknown, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	t, ok := errorType(err)
	if !ok {
		return false
	}
	return t == ErrTypeNetwork ||
		t == ErrTypeTimeout ||
		t == ErrTypeConnectionRefused ||
		t == ErrTypeDNS
}

// IsRejected checks if the device answered but did not report success
func IsRejected(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeRejected
}

// IsInvalidArgument checks if an error is a local validation failure
func IsInvalidArgument(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeInvalidArgument
}

// IsNotFound checks if an error is a lookup failure
func IsNotFound(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeNotFound
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeParse
}

// TroubleshootingHint returns user-friendly troubleshooting advice for an error
func TroubleshootingHint(err error) []string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return nil
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return []string{
			"Check that the device is powered on and on the same network",
			"Older firmware listens on port 7345 instead of 9000 (try --port 7345)",
			"Try increasing --timeout",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"The device is reachable but not listening on this port",
			"Newer firmware uses port 9000, older firmware 7345",
		}
	case ErrTypeDNS:
		return []string{
			"Use the IP address instead of the hostname",
			"Run 'smartcast scan' to find the device address",
		}
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable, NetworkErrorNetworkUnreachable:
			return []string{
				"Verify the device IP address is correct",
				"Check that you're on the same network as the device",
				"Try pinging the device: ping " + devErr.Host,
			}
		default:
			return []string{
				"Check your network connection",
				"Verify the device is powered on",
			}
		}
	case ErrTypeRejected:
		hints := []string{"The device refused the request"}
		switch strings.ToUpper(devErr.Result) {
		case "HASHVAL_ERROR":
			hints = append(hints, "The setting changed since it was read; read it again and retry")
		case "URI_NOT_FOUND":
			hints = append(hints, "This endpoint is not supported by the device firmware")
		case "BLOCKED":
			hints = append(hints, "The device is busy with another pairing or update; try again shortly")
		default:
			hints = append(hints, "Some endpoints require pairing first: run 'smartcast pair'")
		}
		return hints
	case ErrTypeNotFound:
		return []string{"Run 'smartcast input list' or 'smartcast settings dump' to see available names"}
	case ErrTypeInvalidArgument:
		return []string{"Check the value passed on the command line"}
	default:
		return nil
	}
}
