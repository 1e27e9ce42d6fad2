package webpush

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTTL     = 12 * time.Hour
	defaultTimeout = 10 * time.Second
)

type Config struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Sender delivers encrypted push messages signed with the VAPID key pair.
type Sender struct {
	publicKey  string
	privateKey string
	subject    string
	ttl        time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

var _ usecase.PushSender = (*Sender)(nil)

func NewSender(cfg Config) *Sender {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &Sender{
		publicKey:  strings.TrimSpace(cfg.PublicKey),
		privateKey: strings.TrimSpace(cfg.PrivateKey),
		subject:    subscription.NormalizeVAPIDSubject(cfg.Subject),
		ttl:        ttl,
		httpClient: httpClient,
		logger:     logger,
	}
	if !s.Enabled() {
		logger.Warn("web push disabled: VAPID keys or subject missing")
	}
	return s
}

func (s *Sender) Enabled() bool {
	return s.publicKey != "" && s.privateKey != "" && s.subject != ""
}

func (s *Sender) PublicKey() string {
	return s.publicKey
}

// Send returns a *usecase.PushDeliveryError when the push service answers
// with a non-success status.
func (s *Sender) Send(ctx context.Context, target subscription.WebPush, payload []byte) error {
	if !s.Enabled() {
		return fmt.Errorf("%w: web push is not configured", usecase.ErrDependencyUnavailable)
	}

	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, &webpushgo.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: target.Keys.P256dh,
			Auth:   target.Keys.Auth,
		},
	}, &webpushgo.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subject,
		TTL:             int(s.ttl / time.Second),
		Urgency:         webpushgo.UrgencyHigh,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &usecase.PushDeliveryError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
