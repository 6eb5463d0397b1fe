package speaker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/settings"
	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/wire"
)

// Speaker is the client handle for one SmartCast audio device.
//
// Grouped operations live on the Power, Input, Volume and Media services. The
// settings tree is available through Settings and populated by Discover.
type Speaker struct {
	host      string
	port      int
	transport transport.Transport
	client    *transport.Client
	tree      *settings.Tree
	logger    *zap.Logger

	Power  *PowerService
	Input  *InputService
	Volume *VolumeService
	Media  *MediaService

	observersMu    sync.Mutex
	observers      map[int]func(Snapshot)
	errorObservers map[int]func(error)
	nextID         int

	pollMu      sync.Mutex
	poll        *pollLoop
	minInterval time.Duration
}

type options struct {
	port      int
	transport transport.Transport
	logger    *zap.Logger
	authToken string
	timeout   time.Duration
	metrics   *transport.Metrics
}

// Option configures a Speaker
type Option func(*options)

// WithPort sets the control port (default 9000)
func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

// WithTransport replaces the HTTPS transport, mainly for tests
func WithTransport(tr transport.Transport) Option {
	return func(o *options) { o.transport = tr }
}

// WithLogger sets the logger used by the speaker and its settings tree
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAuthToken sets the pairing token sent in the AUTH header
func WithAuthToken(token string) Option {
	return func(o *options) { o.authToken = token }
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithMetrics records transport metrics into m
func WithMetrics(m *transport.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a handle for the device at host. Nothing is sent until an
// operation is called; use Discover to populate the settings tree.
func New(host string, opts ...Option) *Speaker {
	o := options{port: transport.DefaultPort}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Named("speaker")
	}
	o.logger = o.logger.With(zap.String("host", host))

	s := &Speaker{
		host:           host,
		port:           o.port,
		transport:      o.transport,
		logger:         o.logger,
		observers:      make(map[int]func(Snapshot)),
		errorObservers: make(map[int]func(error)),
		minInterval:    MinPollInterval,
	}

	if s.transport == nil {
		client := transport.NewClient(host, o.port)
		client.AuthToken = o.authToken
		client.Metrics = o.metrics
		client.SetLogger(o.logger.Named("transport"))
		if o.timeout > 0 {
			client.SetTimeout(o.timeout)
		}
		s.client = client
		s.transport = client
	}

	s.tree = settings.NewTree(s.transport, EndpointSettings, settings.WithLogger(o.logger.Named("settings")))

	s.Power = &PowerService{s: s}
	s.Input = &InputService{s: s}
	s.Volume = &VolumeService{s: s}
	s.Media = &MediaService{s: s}
	return s
}

// Host returns the device host
func (s *Speaker) Host() string { return s.host }

// Port returns the device control port
func (s *Speaker) Port() int { return s.port }

// Settings returns the device settings tree
func (s *Speaker) Settings() *settings.Tree { return s.tree }

// Ready is closed once the first complete settings discovery has finished
func (s *Speaker) Ready() <-chan struct{} { return s.tree.Ready() }

// Discover traverses the settings tree and returns its cache view
func (s *Speaker) Discover(ctx context.Context) (map[string]any, error) {
	view, err := s.tree.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings discovery failed: %w", err)
	}
	return view, nil
}

// SetAuthToken updates the AUTH header for the built-in HTTPS transport
func (s *Speaker) SetAuthToken(token string) {
	if s.client != nil {
		s.client.AuthToken = token
	}
}

// KeyCommand sends a single key press and returns STATUS.RESULT
func (s *Speaker) KeyCommand(ctx context.Context, key Key) (string, error) {
	s.logger.Debug("Sending key press",
		zap.Int("codeset", key.Codeset),
		zap.Int("code", key.Code),
	)

	body, err := s.transport.Do(ctx, http.MethodPut, EndpointKeyPress, wire.NewKeyPress(key.Codeset, key.Code))
	if err != nil {
		return "", err
	}
	return transport.CheckResult(fmt.Sprintf("key %d/%d", key.Codeset, key.Code), body)
}

// PairResult is the device's answer to a pairing start request
type PairResult struct {
	// Result is STATUS.RESULT as reported by the device
	Result string
	// DeviceID identifies this client to the device and is needed to finish pairing
	DeviceID string
	// Token is the PAIRING_REQ_TOKEN to send back with the PIN
	Token int64
	// ChallengeType is the device's CHALLENGE_TYPE (1 for an on-screen PIN)
	ChallengeType int
}

// Pair starts pairing under a fresh time-based device id. The device-reported
// result is returned as-is; a response with no result at all is an error that
// carries the whole body.
func (s *Speaker) Pair(ctx context.Context) (*PairResult, error) {
	id := fmt.Sprintf("smartcast-%d", time.Now().UnixMilli())

	body, err := s.transport.Do(ctx, http.MethodPut, EndpointBeginPair, wire.PairRequest{
		DeviceName: id,
		DeviceID:   id,
	})
	if err != nil {
		return nil, err
	}

	result, ok := body.Result()
	if !ok {
		return nil, transport.NewRejectedError("pairing start returned no result", body)
	}

	pr := &PairResult{Result: result, DeviceID: id, ChallengeType: 1}
	if resp := body.Response(); resp != nil && resp.Item != nil {
		if token, ok := resp.Item["PAIRING_REQ_TOKEN"].(float64); ok {
			pr.Token = int64(token)
		}
		if challenge, ok := resp.Item["CHALLENGE_TYPE"].(float64); ok {
			pr.ChallengeType = int(challenge)
		}
	}

	s.logger.Info("Pairing started",
		zap.String("device_id", id),
		zap.String("result", result),
	)
	return pr, nil
}

// CompletePair answers the pairing challenge with the PIN shown on the device
// and returns the AUTH token. The built-in transport starts using the token
// immediately.
func (s *Speaker) CompletePair(ctx context.Context, pr *PairResult, pin string) (string, error) {
	if pr == nil || pr.DeviceID == "" {
		return "", transport.NewInvalidArgumentError("pairing has not been started")
	}
	if pin == "" {
		return "", transport.NewInvalidArgumentError("PIN is required")
	}

	body, err := s.transport.Do(ctx, http.MethodPut, EndpointPair, wire.PairChallenge{
		DeviceID:        pr.DeviceID,
		ChallengeType:   pr.ChallengeType,
		ResponseValue:   pin,
		PairingReqToken: pr.Token,
	})
	if err != nil {
		return "", err
	}
	if _, err := transport.CheckResult("pairing", body); err != nil {
		return "", err
	}

	var token string
	if resp := body.Response(); resp != nil && resp.Item != nil {
		token, _ = resp.Item["AUTH_TOKEN"].(string)
	}
	if token == "" {
		return "", transport.NewRejectedError("pairing response carried no AUTH_TOKEN", body)
	}

	s.SetAuthToken(token)
	s.logger.Info("Pairing complete", zap.String("device_id", pr.DeviceID))
	return token, nil
}

// readItem GETs a direct value endpoint and returns ITEMS[0]
func (s *Speaker) readItem(ctx context.Context, path string) (wire.Item, *wire.Body, error) {
	body, err := s.transport.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return wire.Item{}, nil, err
	}
	item, ok := body.Response().First()
	if !ok {
		if _, err := transport.CheckResult("read "+path, body); err != nil {
			return wire.Item{}, body, err
		}
		return wire.Item{}, body, transport.NewNotFoundError(path + " returned no items")
	}
	return item, body, nil
}

// modify PUTs a MODIFY to path and returns STATUS.RESULT
func (s *Speaker) modify(ctx context.Context, path string, hashVal int64, value any) (string, error) {
	body, err := s.transport.Do(ctx, http.MethodPut, path, wire.NewModify(hashVal, value))
	if err != nil {
		return "", err
	}
	return transport.CheckResult("modify "+path, body)
}
