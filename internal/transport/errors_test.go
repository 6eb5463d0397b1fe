package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/muurk/smartcast/internal/wire"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{ErrTypeNetwork, "Network Error"},
		{ErrTypeTimeout, "Timeout"},
		{ErrTypeRejected, "Device Rejection"},
		{ErrTypeInvalidArgument, "Invalid Argument"},
		{ErrTypeNotFound, "Not Found"},
		{ErrorType(99), "ErrorType(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
	}{
		{
			name:        "timeout",
			err:         os.ErrDeadlineExceeded,
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name:        "dns",
			err:         &net.DNSError{Name: "speaker.local", Err: "no such host"},
			wantType:    ErrTypeDNS,
			wantSubtype: NetworkErrorDNS,
		},
		{
			name:        "connection refused",
			err:         &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
		},
		{
			name:        "host unreachable",
			err:         &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)},
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorHostUnreachable,
		},
		{
			name:        "generic",
			err:         errors.New("tls: handshake failure"),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "192.168.1.40")
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", got.NetworkSubtype, tt.wantSubtype)
			}
			if got.Host != "192.168.1.40" {
				t.Errorf("Host = %q", got.Host)
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should return nil")
	}
}

func TestCheckResult(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantResult string
		wantErr    bool
	}{
		{name: "success", raw: `{"STATUS":{"RESULT":"SUCCESS"}}`, wantResult: "SUCCESS"},
		{name: "stale hashval", raw: `{"STATUS":{"RESULT":"HASHVAL_ERROR"}}`, wantResult: "HASHVAL_ERROR", wantErr: true},
		{name: "missing status", raw: `{"ITEMS":[]}`, wantErr: true},
		{name: "text body", raw: `oops`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := wire.DecodeBody(200, []byte(tt.raw))
			result, err := CheckResult("test", body)
			if result != tt.wantResult {
				t.Errorf("result = %q, want %q", result, tt.wantResult)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !IsRejected(err) {
				t.Errorf("error should be a rejection, got %v", err)
			}
			var devErr *DeviceError
			if !errors.As(err, &devErr) || devErr.Body != body {
				t.Error("rejection should carry the full response body")
			}
		})
	}
}

func TestPredicates_WrappedErrors(t *testing.T) {
	notFound := fmt.Errorf("set input: %w", NewNotFoundError("input HDMI-9 not found"))
	invalid := fmt.Errorf("set volume: %w", NewInvalidArgumentError("out of range"))

	if !IsNotFound(notFound) {
		t.Error("IsNotFound() should see through wrapping")
	}
	if IsInvalidArgument(notFound) {
		t.Error("IsInvalidArgument() should be false for not-found")
	}
	if !IsInvalidArgument(invalid) {
		t.Error("IsInvalidArgument() should see through wrapping")
	}
	if IsNetworkError(errors.New("plain")) {
		t.Error("IsNetworkError() should be false for plain errors")
	}
}

func TestDeviceError_Error(t *testing.T) {
	body := wire.DecodeBody(200, []byte(`{"STATUS":{"RESULT":"BLOCKED"}}`))
	err := NewRejectedError("pairing refused", body)

	msg := err.Error()
	if !strings.Contains(msg, "Device Rejection") || !strings.Contains(msg, "BLOCKED") {
		t.Errorf("Error() = %q, want type and result", msg)
	}
}

func TestTroubleshootingHint(t *testing.T) {
	body := wire.DecodeBody(200, []byte(`{"STATUS":{"RESULT":"HASHVAL_ERROR"}}`))
	hints := TroubleshootingHint(NewRejectedError("modify", body))

	if len(hints) < 2 {
		t.Fatalf("expected hints for a stale hashval, got %v", hints)
	}
	if !strings.Contains(hints[1], "read it again") {
		t.Errorf("hint = %q, want retry advice", hints[1])
	}

	if TroubleshootingHint(errors.New("plain")) != nil {
		t.Error("plain errors should have no hints")
	}
}
