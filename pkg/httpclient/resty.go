package httpclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

type RestyClient struct {
	client          *resty.Client
	limiter         *rate.Limiter
	maxRetryElapsed time.Duration
}

type Option func(*RestyClient)

// WithRateLimit caps outgoing requests per minute. Zero disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(rc *RestyClient) {
		if perMinute > 0 {
			rc.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithMaxRetryElapsed sets the total time budget for retries. Zero means a
// single attempt.
func WithMaxRetryElapsed(d time.Duration) Option {
	return func(rc *RestyClient) {
		rc.maxRetryElapsed = d
	}
}

func WithHeader(key, value string) Option {
	return func(rc *RestyClient) {
		if value != "" {
			rc.client.SetHeader(key, value)
		}
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) HTTPClient {
	rc := &RestyClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Get performs a GET with rate limiting and exponential backoff on transport
// errors, 429 and 5xx responses.
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	var out *BaseResponse

	operation := func() error {
		if rc.limiter != nil {
			if err := rc.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		req := rc.client.R().SetContext(ctx).SetResult(result)
		if queryParams != nil {
			req.SetQueryParams(queryParams)
		}
		if headers != nil {
			req.SetHeaders(headers)
		}

		resp, err := req.Get(endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		out = &BaseResponse{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
			Headers:    resp.Header(),
		}
		if resp.IsError() {
			statusErr := &StatusError{StatusCode: resp.StatusCode(), Endpoint: endpoint}
			if statusErr.retryable() {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		return nil
	}

	if rc.maxRetryElapsed <= 0 {
		err := operation()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return out, err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = 250 * time.Millisecond
	strategy.MaxElapsedTime = rc.maxRetryElapsed

	err := backoff.Retry(operation, backoff.WithContext(strategy, ctx))
	return out, err
}
