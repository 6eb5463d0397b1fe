// Package transport sends requests to a SmartCast device over HTTPS.
//
// Devices serve their control API on port 9000 (7345 on older firmware) behind a
// self-signed certificate, so the client disables certificate validation. Every
// request carries Accept and Content-Type application/json headers, and the AUTH
// header once the client has been paired.
//
// # Results
//
// Do returns a wire.Body: the decoded JSON response when the body parses, or the
// raw text otherwise. HTTP status codes are recorded on the body but are not
// errors; devices report the outcome of an operation in STATUS.RESULT, which
// callers check with CheckResult.
//
// # Errors
//
// All errors are *DeviceError values classified by ErrorType:
//
//   - Network, Timeout, ConnectionRefused, DNS: the request never completed
//   - Rejected: the device answered without a SUCCESS result
//   - InvalidArgument: local validation failed before any request
//   - NotFound: a named input or setting is missing from the device listing
//
// Use the Is* predicates to inspect them; they see through fmt.Errorf wrapping.
// Nothing in this package retries.
package transport
