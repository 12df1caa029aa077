package audience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Krakenied/MiniMessenger/internal/markup"
)

type HubTestSuite struct {
	suite.Suite
	hub *Hub
	now time.Time
}

func (s *HubTestSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.hub = NewHub(WithInboxSize(3), WithClock(func() time.Time {
		s.now = s.now.Add(time.Second)
		return s.now
	}))
}

func (s *HubTestSuite) join(name string, perms ...string) Recipient {
	r, err := s.hub.Join(name, perms)
	s.Require().NoError(err)
	return r
}

func (s *HubTestSuite) TestJoin() {
	testCases := []struct {
		name      string
		existing  []string
		join      string
		expectErr error
		expectCnt int64
	}{
		{name: "first recipient", join: "Alice", expectCnt: 1},
		{name: "blank name", join: "   ", expectErr: ErrEmptyName},
		{name: "duplicate name ignores case", existing: []string{"alice"}, join: "ALICE", expectErr: ErrNameTaken, expectCnt: 1},
		{name: "second recipient", existing: []string{"Bob"}, join: "Alice", expectCnt: 2},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			for _, n := range tc.existing {
				s.join(n)
			}

			r, err := s.hub.Join(tc.join, []string{" Chat.Color ", ""})
			if tc.expectErr != nil {
				s.ErrorIs(err, tc.expectErr)
			} else {
				s.Require().NoError(err)
				s.NotEmpty(r.ID)
				s.Equal([]string{"chat.color"}, r.Permissions)
			}
			s.Equal(tc.expectCnt, s.hub.Count())
		})
	}
}

func (s *HubTestSuite) TestLeave() {
	r := s.join("Alice")

	left, ok := s.hub.Leave(r.ID)
	s.True(ok)
	s.Equal("Alice", left.Name)
	s.Equal(int64(0), s.hub.Count())

	_, ok = s.hub.Leave(r.ID)
	s.False(ok)

	// The name is free again.
	s.join("alice")
}

func (s *HubTestSuite) TestMemberChannels() {
	r := s.join("Alice")
	m, ok := s.hub.Member(r.ID)
	s.Require().True(ok)
	s.Equal(r.ID, m.ID())

	m.SendMessage(markup.Text("hello"))
	m.SendActionBar(markup.Text("status"))

	inbox, ok := s.hub.Inbox(r.ID, false)
	s.Require().True(ok)
	s.Require().Len(inbox, 2)
	s.Equal(ChannelChat, inbox[0].Channel)
	s.Equal("hello", inbox[0].Text)
	s.Equal(ChannelActionBar, inbox[1].Channel)
	s.Equal("status", inbox[1].Text)
	s.True(inbox[0].At.Before(inbox[1].At))
}

func (s *HubTestSuite) TestDeliveryAfterLeaveIsDropped() {
	r := s.join("Alice")
	m, _ := s.hub.Member(r.ID)
	s.hub.Leave(r.ID)

	m.SendMessage(markup.Text("late"))
	s.Equal(int64(0), s.hub.Delivered())

	_, ok := s.hub.Member(r.ID)
	s.False(ok)
}

func (s *HubTestSuite) TestInboxBoundAndDrain() {
	r := s.join("Alice")
	m, _ := s.hub.Member(r.ID)
	for _, txt := range []string{"1", "2", "3", "4", "5"} {
		m.SendMessage(markup.Text(txt))
	}

	inbox, _ := s.hub.Inbox(r.ID, true)
	s.Require().Len(inbox, 3)
	s.Equal("3", inbox[0].Text)
	s.Equal("5", inbox[2].Text)

	inbox, _ = s.hub.Inbox(r.ID, false)
	s.Empty(inbox)
}

func (s *HubTestSuite) TestBroadcast() {
	a := s.join("Alice")
	b := s.join("Bob")

	s.Equal(2, s.hub.Broadcast(markup.Text("hi all")))

	for _, id := range []string{a.ID, b.ID} {
		inbox, _ := s.hub.Inbox(id, false)
		s.Require().Len(inbox, 1)
		s.Equal("hi all", inbox[0].Text)
	}
}

func (s *HubTestSuite) TestBroadcastPermission() {
	admin := s.join("Admin", "*")
	mod := s.join("Mod", "server.mod.*")
	exact := s.join("Exact", "server.mod.kick")
	none := s.join("Guest")

	n := s.hub.BroadcastPermission(markup.Text("staff only"), "Server.Mod.Kick")
	s.Equal(3, n)

	for _, id := range []string{admin.ID, mod.ID, exact.ID} {
		inbox, _ := s.hub.Inbox(id, false)
		s.Len(inbox, 1)
	}
	inbox, _ := s.hub.Inbox(none.ID, false)
	s.Empty(inbox, "recipients lacking the permission receive nothing")

	s.Equal(4, s.hub.BroadcastPermission(markup.Text("all"), ""))
}

func (s *HubTestSuite) TestRecipientsOrdered() {
	s.join("Carol")
	s.join("Alice")
	s.join("Bob")

	var names []string
	for _, r := range s.hub.Recipients() {
		names = append(names, r.Name)
	}
	s.Equal([]string{"Carol", "Alice", "Bob"}, names)
}

func (s *HubTestSuite) TestHasPermission() {
	testCases := []struct {
		granted []string
		want    string
		expect  bool
	}{
		{nil, "a.b", false},
		{[]string{"a.b"}, "a.b", true},
		{[]string{"a.*"}, "a.b.c", true},
		{[]string{"a.*"}, "ab.c", false},
		{[]string{"*"}, "anything", true},
		{[]string{"a.b"}, "a.b.c", false},
	}
	for _, tc := range testCases {
		s.Equal(tc.expect, hasPermission(tc.granted, tc.want), "%v covers %q", tc.granted, tc.want)
	}
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}
