package trakt

import (
	"context"
	"time"
)

// SetSleep replaces the retry sleep function so tests run instantly.
func SetSleep(c *Client, fn func(context.Context, time.Duration) error) {
	c.sleep = fn
}
