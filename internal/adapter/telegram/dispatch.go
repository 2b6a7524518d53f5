package telegram

import (
	"context"
	"log/slog"

	"github.com/gotd/td/tg"
	"golang.org/x/sync/errgroup"
)

func (c *Client) setDispatch(ctx context.Context, group *errgroup.Group) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	c.dispatchCtx = ctx
	c.group = group
}

func (c *Client) clearDispatch() {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	c.dispatchCtx = nil
	c.group = nil
}

// onMessage records the peers carried by the update and queues the message for the handler.
// It blocks while every worker is busy, which applies back-pressure to the update loop.
func (c *Client) onMessage(ctx context.Context, e tg.Entities, m tg.MessageClass) {
	c.peers.learnEntities(e)

	ev, ok := toInboundEvent(m)
	if !ok {
		return
	}

	c.dispatchMu.RLock()
	group, groupCtx := c.group, c.dispatchCtx
	c.dispatchMu.RUnlock()

	if group == nil {
		slog.DebugContext(ctx, "Dropping message received before client was ready", "peer", ev.Peer.Placeholder())
		return
	}

	group.Go(func() error {
		c.handler(groupCtx, ev)
		return nil
	})
}
