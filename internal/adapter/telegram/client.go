package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/codedrop/internal/domain"
	"github.com/pscheid92/codedrop/internal/platform/version"
)

const (
	breakerTimeout      = 30 * time.Second
	breakerFailureLimit = 5
)

// EventHandler receives every converted message. It must not panic.
type EventHandler func(ctx context.Context, ev domain.InboundEvent)

// Config holds the Telegram connection settings. SessionString, when set, takes precedence
// over SessionFile.
type Config struct {
	AppID         int
	AppHash       string
	SessionFile   string
	SessionString string
	Workers       int
}

type usernameAPI interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
}

// Client is the upstream transport. It implements domain.Upstream and domain.UsernameLookup.
type Client struct {
	appID      int
	appHash    string
	storage    telegram.SessionStorage
	dispatcher tg.UpdateDispatcher

	apiMu   sync.RWMutex
	api     usernameAPI
	peers   *peerTable
	breaker *gobreaker.CircuitBreaker
	handler EventHandler
	workers int
	ready   atomic.Bool

	dispatchMu  sync.RWMutex
	dispatchCtx context.Context
	group       *errgroup.Group
}

var (
	_ domain.Upstream       = (*Client)(nil)
	_ domain.UsernameLookup = (*Client)(nil)
)

// New creates a client. Messages are dispatched with at most cfg.Workers in flight once Run is called.
func New(ctx context.Context, cfg Config) (*Client, error) {
	storage, err := newSessionStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		appID:   cfg.AppID,
		appHash: cfg.AppHash,
		storage: storage,
		peers:   newPeerTable(),
		breaker: newBreaker(),
		workers: max(cfg.Workers, 1),
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.onMessage(ctx, e, u.Message)
		return nil
	})
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.onMessage(ctx, e, u.Message)
		return nil
	})

	c.dispatcher = dispatcher
	return c, nil
}

func newSessionStorage(ctx context.Context, cfg Config) (telegram.SessionStorage, error) {
	if cfg.SessionString == "" {
		return &session.FileStorage{Path: cfg.SessionFile}, nil
	}

	data, err := decodeStringSession(cfg.SessionString)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session string: %w", err)
	}

	storage := new(session.StorageMemory)
	if err := (&session.Loader{Storage: storage}).Save(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to load session string: %w", err)
	}
	return storage, nil
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "telegram",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureLimit
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrEntityNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})
}

// Run connects to Telegram, delivers messages to handler and blocks until ctx is cancelled.
// onReady runs once the session is authorized; events are already delivered while it runs.
// Run may be called again after it returns; each call opens a new connection on the same session.
func (c *Client) Run(ctx context.Context, handler EventHandler, onReady func(ctx context.Context)) error {
	c.handler = handler
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	client := telegram.NewClient(c.appID, c.appHash, telegram.Options{
		SessionStorage: c.storage,
		UpdateHandler:  c.dispatcher,
		Device:         telegram.DeviceConfig{AppVersion: version.Get().Version},
	})
	c.setAPI(client.API())

	err := client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to check auth status: %w", err)
		}
		if !status.Authorized {
			return domain.ErrNotAuthorized
		}

		c.setDispatch(groupCtx, group)
		c.ready.Store(true)
		slog.Info("Telegram client connected")

		if onReady != nil {
			onReady(ctx)
		}

		<-ctx.Done()
		return ctx.Err()
	})
	c.ready.Store(false)
	c.clearDispatch()

	if waitErr := group.Wait(); waitErr != nil {
		slog.Error("Event worker failed", "error", waitErr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Ready reports whether the client is connected and authorized.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// GetEntity answers from the peers the client has already seen.
func (c *Client) GetEntity(_ context.Context, peer domain.PeerRef) (*domain.Entity, error) {
	entity, ok := c.peers.lookup(peer)
	if !ok {
		return nil, fmt.Errorf("%s: %w", peer.Placeholder(), domain.ErrEntityNotFound)
	}
	return &entity, nil
}

// ResolveUsername asks Telegram for the channel or user behind username.
func (c *Client) ResolveUsername(ctx context.Context, username string) (*domain.Entity, error) {
	username = domain.CanonicalName(username)

	api := c.currentAPI()
	if api == nil {
		return nil, fmt.Errorf("resolve @%s: client is not running", username)
	}

	v, err := c.breaker.Execute(func() (any, error) {
		resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
		if err != nil {
			return nil, classifyRPCError(err)
		}
		return resolved, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve @%s: %w", username, err)
	}

	resolved := v.(*tg.ContactsResolvedPeer)
	c.peers.learnChats(resolved.Chats)
	c.peers.learnUsers(resolved.Users)

	peer, ok := toPeerRef(resolved.Peer)
	if !ok {
		return nil, fmt.Errorf("resolve @%s: unsupported peer: %w", username, domain.ErrEntityNotFound)
	}
	return c.GetEntity(ctx, peer)
}

func (c *Client) setAPI(api usernameAPI) {
	c.apiMu.Lock()
	defer c.apiMu.Unlock()
	c.api = api
}

func (c *Client) currentAPI() usernameAPI {
	c.apiMu.RLock()
	defer c.apiMu.RUnlock()
	return c.api
}

func classifyRPCError(err error) error {
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return &domain.RateLimitedError{Wait: wait, Err: err}
	}
	if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "CHANNEL_PRIVATE") {
		return fmt.Errorf("%w: %w", domain.ErrEntityNotFound, err)
	}
	if tgerr.Is(err, "AUTH_KEY_UNREGISTERED", "SESSION_REVOKED") {
		return fmt.Errorf("%w: %w", domain.ErrNotAuthorized, err)
	}
	return err
}
