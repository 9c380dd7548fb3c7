package main

import (
	"context"
	"fmt"

	"telewatch/impl/telegram"
	"telewatch/internal/apperr"
)

// unconfiguredSessionClient backs telegram.Factory when no MTProto user-
// account library is wired into this build. The user-account connection
// is an external collaborator the same way the payment gateway and the
// bot HTTP API are: this process speaks to it, it does not implement it.
// Swap newSessionClient for a real client's constructor to go live.
type unconfiguredSessionClient struct{}

func newSessionClient() telegram.SessionClient {
	return &unconfiguredSessionClient{}
}

func (c *unconfiguredSessionClient) Connect(_ context.Context, _ string) error {
	return apperr.New(apperr.ArtifactInvalid, "no telegram user-account client configured for this deployment")
}

func (c *unconfiguredSessionClient) Subscribe(_ context.Context, _ []string) error {
	return fmt.Errorf("session client not connected")
}

func (c *unconfiguredSessionClient) Events() <-chan telegram.Event {
	ch := make(chan telegram.Event)
	close(ch)
	return ch
}

func (c *unconfiguredSessionClient) Healthy() bool { return false }

func (c *unconfiguredSessionClient) Close(_ context.Context) error { return nil }
