package notification

import (
	"fmt"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// PushGateway is the slice of the push provider the dispatcher needs. The Expo
// client satisfies it directly; tests substitute a fake.
type PushGateway interface {
	PublishMultiple(messages []expo.PushMessage) ([]expo.PushResponse, error)
}

// ExpoGateway wraps the Expo push client with a hard per-call timeout. The SDK
// has no context or timeout hook, so the call runs in its own goroutine and the
// caller gives up after the budget; a timed-out batch counts as failed and never
// deactivates tokens.
type ExpoGateway struct {
	client  *expo.PushClient
	timeout time.Duration
}

func NewExpoGateway() *ExpoGateway {
	return &ExpoGateway{
		client:  expo.NewPushClient(nil),
		timeout: DefaultPushTimeout,
	}
}

func (g *ExpoGateway) PublishMultiple(messages []expo.PushMessage) ([]expo.PushResponse, error) {
	type result struct {
		responses []expo.PushResponse
		err       error
	}

	ch := make(chan result, 1)
	go func() {
		responses, err := g.client.PublishMultiple(messages)
		ch <- result{responses, err}
	}()

	select {
	case r := <-ch:
		return r.responses, r.err
	case <-time.After(g.timeout):
		return nil, fmt.Errorf("push provider timed out after %s", g.timeout)
	}
}
