package telegram

import (
	"sync"

	"github.com/gotd/td/tg"

	"github.com/pscheid92/codedrop/internal/domain"
)

// peerTable remembers every user, chat and channel the client has been told about.
// Telegram only delivers peer details alongside updates and API results, so an ID
// that was never seen cannot be resolved.
type peerTable struct {
	mu       sync.RWMutex
	channels map[int64]domain.Entity
	users    map[int64]domain.Entity
	chats    map[int64]domain.Entity
}

func newPeerTable() *peerTable {
	return &peerTable{
		channels: make(map[int64]domain.Entity),
		users:    make(map[int64]domain.Entity),
		chats:    make(map[int64]domain.Entity),
	}
}

func (t *peerTable) learnEntities(e tg.Entities) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, ch := range e.Channels {
		t.storeChannel(id, ch)
	}
	for id, u := range e.Users {
		t.storeUser(id, u)
	}
	for id, c := range e.Chats {
		t.chats[id] = domain.Entity{ID: id, Title: c.Title}
	}
}

func (t *peerTable) learnChats(chats []tg.ChatClass) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range chats {
		switch c := c.(type) {
		case *tg.Channel:
			t.storeChannel(c.ID, c)
		case *tg.Chat:
			t.chats[c.ID] = domain.Entity{ID: c.ID, Title: c.Title}
		}
	}
}

func (t *peerTable) learnUsers(users []tg.UserClass) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, u := range users {
		if u, ok := u.(*tg.User); ok {
			t.storeUser(u.ID, u)
		}
	}
}

// storeChannel keeps an earlier username when a min constructor arrives without one.
func (t *peerTable) storeChannel(id int64, ch *tg.Channel) {
	entity := domain.Entity{ID: id, Username: channelUsername(ch), Title: ch.Title}
	if prev, ok := t.channels[id]; ok && entity.Username == "" {
		entity.Username = prev.Username
	}
	t.channels[id] = entity
}

// channelUsername returns the primary username. Channels with collectible usernames
// leave Username empty and list them in Usernames instead.
func channelUsername(ch *tg.Channel) string {
	if ch.Username != "" {
		return ch.Username
	}
	for _, u := range ch.Usernames {
		if u.Active {
			return u.Username
		}
	}
	return ""
}

func (t *peerTable) storeUser(id int64, u *tg.User) {
	title := u.FirstName
	if u.LastName != "" {
		title += " " + u.LastName
	}
	entity := domain.Entity{ID: id, Username: u.Username, Title: title}
	if prev, ok := t.users[id]; ok && entity.Username == "" {
		entity.Username = prev.Username
	}
	t.users[id] = entity
}

func (t *peerTable) lookup(peer domain.PeerRef) (domain.Entity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		e  domain.Entity
		ok bool
	)
	switch peer.Kind {
	case domain.PeerChannel:
		e, ok = t.channels[peer.ID]
	case domain.PeerUser:
		e, ok = t.users[peer.ID]
	case domain.PeerChat:
		e, ok = t.chats[peer.ID]
	}
	return e, ok
}
