package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/budget-dashboard/authapi"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/metrics"
	"github.com/jrsteele09/budget-dashboard/notify"
	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	HeaderRequestID = "X-Request-ID"

	DefaultTimeout = 30 * time.Second
)

// Refresher is the single-flight refresh path shared by every request.
// rejectedToken is the access token the server just refused.
type Refresher interface {
	RefreshRejected(ctx context.Context, rejectedToken string) (sessions.Tokens, error)
}

// Pipeline sends calls with the session's credentials and recovers from an
// expired access token with one refresh and one resend.
type Pipeline struct {
	baseURL      string
	base         *url.URL
	httpClient   *http.Client
	store        *sessions.Store
	refresher    Refresher
	notifier     notify.Notifier
	recorder     metrics.Recorder
	logger       zerolog.Logger
	newRequestID func() string
}

type Option func(*Pipeline)

func WithHTTPClient(hc *http.Client) Option {
	return func(p *Pipeline) {
		p.httpClient = hc
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithRequestIDFunc(f func() string) Option {
	return func(p *Pipeline) {
		p.newRequestID = f
	}
}

func New(baseURL string, timeout time.Duration, store *sessions.Store, refresher Refresher, options ...Option) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Pipeline{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		store:        store,
		refresher:    refresher,
		notifier:     notify.Discard{},
		recorder:     metrics.Noop{},
		logger:       log.Logger,
		newRequestID: uuid.NewString,
	}
	if u, err := url.Parse(p.baseURL); err == nil {
		p.base = u
	}
	for _, opt := range options {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "pipeline").Logger()
	return p
}

// Execute sends d. A non-2xx response is returned together with a
// *dasherrors.StatusError. A 401 received while authenticated drives one
// coordinated refresh and one resend; the resend's outcome is final.
//
// ErrRequestDiscarded is returned when the session was cleared or replaced
// while a refresh or resend was pending.
func (p *Pipeline) Execute(ctx context.Context, d Descriptor) (*Response, error) {
	requestID := d.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = p.newRequestID()
	}
	logger := p.logger.With().Str("request_id", requestID).Str("method", d.Method).Str("url", d.URL).Logger()

	sent := p.store.Get()
	ownOrigin := p.sameOrigin(d.URL)
	bearer := ""
	if ownOrigin {
		bearer = bearerFor(sent)
	}
	resp, err := p.send(ctx, d, requestID, bearer)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !ownOrigin {
		return p.finish(d, resp, logger)
	}

	logger.Debug().Msg("received 401")
	return p.recoverUnauthorized(ctx, d, requestID, sent, resp, logger)
}

func (p *Pipeline) recoverUnauthorized(ctx context.Context, d Descriptor, requestID string, sent sessions.Session, original *Response, logger zerolog.Logger) (*Response, error) {
	unauthorized := func() (*Response, error) {
		return original, dasherrors.NewStatusError(original.StatusCode, authapi.ErrorMessage(original.Body, original.StatusCode))
	}

	if !sent.IsAuthenticated {
		return unauthorized()
	}

	current := p.store.Get()
	switch {
	case current.ID != sent.ID:
		logger.Debug().Msg("session changed while request was pending, discarding")
		return nil, dasherrors.ErrRequestDiscarded
	case current.SessionExpired:
		return unauthorized()
	case !current.CanRefresh():
		if p.store.ExpireSession(sent.ID) {
			p.recorder.SessionExpired()
		}
		return unauthorized()
	}

	tokens, err := p.refresher.RefreshRejected(ctx, sent.AccessToken)
	if err != nil {
		if errors.Is(err, dasherrors.ErrSessionChanged) {
			return nil, dasherrors.ErrRequestDiscarded
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("Pipeline.Execute: %w", ctxErr)
		}
		logger.Info().Err(err).Msg("refresh failed, returning original 401")
		return unauthorized()
	}

	if !p.stillValid(sent.ID) {
		return nil, dasherrors.ErrRequestDiscarded
	}

	p.recorder.RequestRetried()
	resp, err := p.send(ctx, d.Clone(), requestID, tokens.Token)
	if err != nil {
		return nil, err
	}
	if !p.stillValid(sent.ID) {
		logger.Debug().Msg("session changed during resend, discarding")
		return nil, dasherrors.ErrRequestDiscarded
	}
	if resp.StatusCode == http.StatusUnauthorized {
		logger.Info().Msg("resend rejected with 401, not retrying again")
		return resp, dasherrors.NewStatusError(resp.StatusCode, authapi.ErrorMessage(resp.Body, resp.StatusCode))
	}
	return p.finish(d, resp, logger)
}

func (p *Pipeline) stillValid(id string) bool {
	current := p.store.Get()
	return current.ID == id && current.IsAuthenticated
}

func (p *Pipeline) finish(d Descriptor, resp *Response, logger zerolog.Logger) (*Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		logger.Debug().Int("status", resp.StatusCode).Msg("request succeeded")
		return resp, nil
	}

	msg := authapi.ErrorMessage(resp.Body, resp.StatusCode)
	logger.Warn().Int("status", resp.StatusCode).Str("message", msg).Msg("request failed")
	p.notifier.Publish(notify.Notification{
		Kind:       notify.KindServerError,
		Message:    msg,
		StatusCode: resp.StatusCode,
		URL:        d.URL,
	})
	return resp, dasherrors.NewStatusError(resp.StatusCode, msg)
}

func (p *Pipeline) send(ctx context.Context, d Descriptor, requestID, accessToken string) (*Response, error) {
	req, err := p.newRequest(ctx, d)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderRequestID, requestID)
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dasherrors.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", dasherrors.ErrNetwork, err)
	}
	p.recorder.ResponseReceived(httpResp.StatusCode)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// sameOrigin reports whether target is served by the API. Credentials are
// only ever attached to such requests.
func (p *Pipeline) sameOrigin(target string) bool {
	if !isAbsolute(target) {
		return true
	}
	u, err := url.Parse(target)
	if err != nil || p.base == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, p.base.Scheme) && strings.EqualFold(u.Host, p.base.Host)
}

func isAbsolute(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

func (p *Pipeline) newRequest(ctx context.Context, d Descriptor) (*http.Request, error) {
	target := d.URL
	if !isAbsolute(target) {
		target = p.baseURL + "/" + strings.TrimLeft(target, "/")
	}

	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range d.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	if len(d.Params) > 0 {
		q := req.URL.Query()
		for k, v := range d.Params {
			for _, s := range v {
				q.Add(k, s)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	return req, nil
}

// bearerFor is the access token to attach for s. Expired sessions keep their
// tokens in memory but never send them.
func bearerFor(s sessions.Session) string {
	if !s.IsAuthenticated {
		return ""
	}
	return s.AccessToken
}
