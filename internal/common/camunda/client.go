package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainspace-intake/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client used to start review processes.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and fails unless the broker
// answers a topology request within ConnectionTimeout.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{
		client: zeebeClient,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// StartProcess creates an instance of the latest deployed version of
// bpmnProcessID, seeded with variables, and returns the instance key.
func (c *Client) StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error) {
	return withRetry(ctx, c.config.RetryConfig, "create-instance:"+bpmnProcessID, func(ctx context.Context) (int64, error) {
		if c.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
			defer cancel()
		}

		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(bpmnProcessID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return 0, fmt.Errorf("encode variables: %w", err)
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return 0, err
		}
		return resp.GetProcessInstanceKey(), nil
	})
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// withRetry runs fn with exponential backoff while the failure is transient.
// The final failure is returned as a StandardError.
func withRetry[T any](ctx context.Context, rc *RetryConfig, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		kind, transient := classify(err)
		if !transient || attempt >= rc.MaxRetries {
			return zero, zeebeError(err, kind, transient, operation, attempt+1)
		}

		delay := rc.BaseDelay << attempt
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("operation %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}
}

// Zeebe surfaces gRPC status codes only in the message text.
var failureKinds = []struct {
	kind      string
	transient bool
	phrases   []string
}{
	{"unavailable", true, []string{"connection refused", "connection reset", "unavailable", "unreachable", "broken pipe"}},
	{"timeout", true, []string{"timeout", "deadline exceeded"}},
	{"throttled", true, []string{"resource_exhausted"}},
	// usually the review process has not been deployed
	{"process_not_found", false, []string{"not found", "notfound"}},
	{"unauthorized", false, []string{"permission denied", "unauthorized", "unauthenticated"}},
}

func classify(err error) (kind string, transient bool) {
	msg := strings.ToLower(err.Error())
	for _, k := range failureKinds {
		for _, phrase := range k.phrases {
			if strings.Contains(msg, phrase) {
				return k.kind, k.transient
			}
		}
	}
	return "unknown", false
}

func zeebeError(err error, kind string, transient bool, operation string, attempts int) error {
	stdErr := errors.NewExternalServiceError("zeebe",
		fmt.Errorf("zeebe operation '%s' failed after %d attempt(s): %w", operation, attempts, err)).
		WithMetadata("kind", kind).
		WithMetadata("operation", operation)
	stdErr.Retryable = transient
	return stdErr
}
