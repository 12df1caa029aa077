package engine

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/markup"
	"github.com/Krakenied/MiniMessenger/internal/messenger"
)

const testMessages = `prefix: "[T] "
messages:
  hello: "hello <name>"
  reloaded: "<green>reloaded</green>"
`

type EngineTestSuite struct {
	suite.Suite
	file   string
	hub    *audience.Hub
	msgr   *messenger.Messenger
	engine *Engine
	ctx    context.Context
}

func (s *EngineTestSuite) SetupTest() {
	s.file = filepath.Join(s.T().TempDir(), "messages.yml")
	resources := fstest.MapFS{"messages.yml": &fstest.MapFile{Data: []byte(testMessages)}}

	s.hub = audience.NewHub()
	m, err := messenger.New(resources, messenger.Paths{
		Resource: "messages.yml",
		File:     s.file,
		Prefix:   "prefix",
		Messages: "messages",
	}, messenger.WithServer(s.hub))
	s.Require().NoError(err)
	s.msgr = m

	var cancel context.CancelFunc
	s.ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	s.T().Cleanup(cancel)

	s.engine = New(m, s.hub)
	s.engine.Run(context.Background())
}

func (s *EngineTestSuite) TearDownTest() {
	s.engine.Close()
}

func (s *EngineTestSuite) name(v string) markup.Placeholders {
	return markup.Placeholders{markup.Unparsed("name", v)}
}

func (s *EngineTestSuite) TestSend() {
	r, err := s.hub.Join("Alice", nil)
	s.Require().NoError(err)

	testCases := []struct {
		name      string
		req       SendRequest
		expectCh  audience.Channel
		expectTxt string
	}{
		{name: "chat", req: SendRequest{Key: "hello"}, expectCh: audience.ChannelChat, expectTxt: "hello A"},
		{name: "prefixed chat", req: SendRequest{Key: "hello", Prefixed: true}, expectCh: audience.ChannelChat, expectTxt: "[T] hello A"},
		{name: "action bar", req: SendRequest{Key: "hello", ActionBar: true}, expectCh: audience.ChannelActionBar, expectTxt: "hello A"},
		{name: "prefixed action bar", req: SendRequest{Key: "hello", ActionBar: true, Prefixed: true}, expectCh: audience.ChannelActionBar, expectTxt: "[T] hello A"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			tc.req.RecipientID = r.ID
			tc.req.Placeholders = s.name("A")
			s.Require().NoError(s.engine.Send(s.ctx, tc.req))

			inbox, ok := s.hub.Inbox(r.ID, true)
			s.Require().True(ok)
			s.Require().Len(inbox, 1)
			s.Equal(tc.expectCh, inbox[0].Channel)
			s.Equal(tc.expectTxt, inbox[0].Text)
		})
	}
}

func (s *EngineTestSuite) TestSendUnknownRecipient() {
	err := s.engine.Send(s.ctx, SendRequest{RecipientID: "nope", Key: "hello"})
	s.ErrorIs(err, ErrUnknownRecipient)
}

func (s *EngineTestSuite) TestBroadcast() {
	_, err := s.hub.Join("Alice", []string{"staff"})
	s.Require().NoError(err)
	_, err = s.hub.Join("Bob", nil)
	s.Require().NoError(err)

	n, err := s.engine.Broadcast(s.ctx, BroadcastRequest{Key: "hello", Placeholders: s.name("all")})
	s.NoError(err)
	s.Equal(2, n)

	n, err = s.engine.Broadcast(s.ctx, BroadcastRequest{Key: "hello", Permission: "staff", Prefixed: true})
	s.NoError(err)
	s.Equal(1, n)
	s.Equal(int64(3), s.hub.Delivered())
}

func (s *EngineTestSuite) TestRender() {
	c, err := s.engine.Render(s.ctx, RenderRequest{Key: "hello", Placeholders: s.name("x"), Prefixed: true})
	s.NoError(err)
	s.Equal("[T] hello x", c.PlainText())

	c, err = s.engine.Render(s.ctx, RenderRequest{Key: "missing"})
	s.NoError(err)
	s.Equal("messages.missing", c.PlainText())
}

func (s *EngineTestSuite) TestReload() {
	s.Require().NoError(os.WriteFile(s.file, []byte("prefix: \"\"\nmessages:\n  hello: changed\n"), 0o644))
	s.NoError(s.engine.Reload(s.ctx))

	c, err := s.engine.Render(s.ctx, RenderRequest{Key: "hello"})
	s.NoError(err)
	s.Equal("changed", c.PlainText())

	s.Require().NoError(os.WriteFile(s.file, []byte("prefix: \"\"\n"), 0o644))
	s.ErrorIs(s.engine.Reload(s.ctx), messenger.ErrInvalidConfig)

	st := s.engine.Status()
	s.Equal("failed", st.State)
	s.NotEmpty(st.LastError)
	s.Equal(int64(2), st.Reloads)
	s.Equal(s.file, st.File)
}

func (s *EngineTestSuite) TestStatus() {
	_, err := s.hub.Join("Alice", nil)
	s.Require().NoError(err)

	st := s.engine.Status()
	s.Equal("ready", st.State)
	s.Empty(st.LastError)
	s.Equal(uint64(1), st.Generation)
	s.Equal(int64(1), st.Recipients)
	s.False(st.LoadedAt.IsZero())
}

func (s *EngineTestSuite) TestClosedEngineRejectsCommands() {
	s.engine.Close()
	<-s.engine.Done()

	s.ErrorIs(s.engine.Reload(s.ctx), ErrNotRunning)
	_, err := s.engine.Broadcast(s.ctx, BroadcastRequest{Key: "hello"})
	s.ErrorIs(err, ErrNotRunning)
}

func (s *EngineTestSuite) TestNotStarted() {
	e := New(s.msgr, s.hub)
	s.ErrorIs(e.Reload(s.ctx), ErrNotRunning)
	e.Close()
}

func (s *EngineTestSuite) TestScheduledReload() {
	e := New(s.msgr, s.hub, WithReloadInterval(10*time.Millisecond))
	e.Run(context.Background())
	defer e.Close()

	before := s.msgr.Reloads()
	s.Eventually(func() bool { return s.msgr.Reloads() > before+1 }, 2*time.Second, 5*time.Millisecond)
}

func (s *EngineTestSuite) TestConcurrentCommandsGetOwnReplies() {
	const workers = 16

	var wg sync.WaitGroup
	texts := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.engine.Render(s.ctx, RenderRequest{Key: "hello", Placeholders: s.name(strconv.Itoa(i))})
			texts[i], errs[i] = c.PlainText(), err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		s.NoError(errs[i])
		s.Equal("hello "+strconv.Itoa(i), texts[i])
	}
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
