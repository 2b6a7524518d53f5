package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/codedrop/internal/domain"
)

func TestPeerTable_LearnEntities(t *testing.T) {
	table := newPeerTable()
	table.learnEntities(tg.Entities{
		Channels: map[int64]*tg.Channel{1001: {ID: 1001, Username: "BonusDrops", Title: "Bonus Drops"}},
		Users:    map[int64]*tg.User{5: {ID: 5, Username: "alice", FirstName: "Alice", LastName: "A"}},
		Chats:    map[int64]*tg.Chat{6: {ID: 6, Title: "Group"}},
	})

	ch, ok := table.lookup(domain.PeerRef{Kind: domain.PeerChannel, ID: 1001})
	require.True(t, ok)
	assert.Equal(t, domain.Entity{ID: 1001, Username: "BonusDrops", Title: "Bonus Drops"}, ch)

	u, ok := table.lookup(domain.PeerRef{Kind: domain.PeerUser, ID: 5})
	require.True(t, ok)
	assert.Equal(t, "Alice A", u.Title)

	chat, ok := table.lookup(domain.PeerRef{Kind: domain.PeerChat, ID: 6})
	require.True(t, ok)
	assert.Equal(t, "Group", chat.DisplayName())

	_, ok = table.lookup(domain.PeerRef{Kind: domain.PeerChannel, ID: 6})
	assert.False(t, ok, "kinds have separate ID spaces")
}

func TestPeerTable_KeepsUsernameFromEarlierSighting(t *testing.T) {
	table := newPeerTable()
	table.learnChats([]tg.ChatClass{&tg.Channel{ID: 1001, Username: "bonusdrops", Title: "Old"}})
	table.learnEntities(tg.Entities{
		Channels: map[int64]*tg.Channel{1001: {ID: 1001, Title: "New"}},
	})

	ch, ok := table.lookup(domain.PeerRef{Kind: domain.PeerChannel, ID: 1001})
	require.True(t, ok)
	assert.Equal(t, "bonusdrops", ch.Username)
	assert.Equal(t, "New", ch.Title)
}

func TestPeerTable_LearnUsersIgnoresEmpty(t *testing.T) {
	table := newPeerTable()
	table.learnUsers([]tg.UserClass{&tg.UserEmpty{ID: 9}, &tg.User{ID: 10, Username: "bob"}})

	_, ok := table.lookup(domain.PeerRef{Kind: domain.PeerUser, ID: 9})
	assert.False(t, ok)
	u, ok := table.lookup(domain.PeerRef{Kind: domain.PeerUser, ID: 10})
	require.True(t, ok)
	assert.Equal(t, "bob", u.Username)
}

func TestPeerTable_UsesActiveUsernameList(t *testing.T) {
	table := newPeerTable()
	table.learnChats([]tg.ChatClass{&tg.Channel{
		ID:    1001,
		Title: "Stake Bonus Drops",
		Usernames: []tg.Username{
			{Username: "stake_old"},
			{Username: "StakeBonusDrops", Active: true},
		},
	}})

	ch, ok := table.lookup(domain.PeerRef{Kind: domain.PeerChannel, ID: 1001})
	require.True(t, ok)
	assert.Equal(t, "StakeBonusDrops", ch.Username)
	assert.Equal(t, "StakeBonusDrops", ch.DisplayName())
}

func TestChannelUsername_NoneActive(t *testing.T) {
	ch := &tg.Channel{Title: "T", Usernames: []tg.Username{{Username: "gone"}}}

	assert.Empty(t, channelUsername(ch))
}
