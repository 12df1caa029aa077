package client_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/engine"
	"github.com/Krakenied/MiniMessenger/internal/messenger"
	"github.com/Krakenied/MiniMessenger/internal/mocks"
	"github.com/Krakenied/MiniMessenger/internal/socket"
	"github.com/Krakenied/MiniMessenger/pkg/api"
	"github.com/Krakenied/MiniMessenger/pkg/client"
)

const testMessages = `prefix: "<gray>[S]</gray> "
messages:
  hello: "<red>hello <name></red>"
  motd: [one, two]
`

type ClientTestSuite struct {
	suite.Suite
	ts     *httptest.Server
	eng    *engine.Engine
	hub    *audience.Hub
	msgr   *messenger.Messenger
	client *client.Client
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.hub = audience.NewHub()
	m, err := messenger.New(
		fstest.MapFS{"messages.yml": &fstest.MapFile{Data: []byte(testMessages)}},
		messenger.Paths{
			Resource: "messages.yml",
			File:     filepath.Join(s.T().TempDir(), "messages.yml"),
			Prefix:   "prefix",
			Messages: "messages",
		},
		messenger.WithServer(s.hub),
	)
	s.Require().NoError(err)
	s.msgr = m

	s.eng = engine.New(m, s.hub)
	s.eng.Run(context.Background())

	s.ts = httptest.NewServer(api.New(s.eng, s.hub, m).Handler())
	s.client = client.NewWithHTTPClient(s.ts.Client(), s.ts.URL)

	var cancel context.CancelFunc
	s.ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	s.T().Cleanup(cancel)
}

func (s *ClientTestSuite) TearDownTest() {
	s.ts.Close()
	s.eng.Close()
}

func (s *ClientTestSuite) socketPath() string {
	dir, err := os.MkdirTemp("", "mm-client-*")
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "d.sock")
}

func (s *ClientTestSuite) TestOverUnixSocket() {
	path := s.socketPath()
	srv := api.New(s.eng, s.hub, s.msgr)
	ln, err := socket.Listen(path)
	s.Require().NoError(err)
	go func() { _ = srv.Serve(ln) }()
	defer srv.Shutdown(context.Background())

	procs := new(mocks.MockProcessChecker)
	c := client.New(path, socket.WithProcessChecker(procs))

	st, err := c.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal("ready", st.State)
}

func (s *ClientTestSuite) TestDaemonNotRunning() {
	procs := new(mocks.MockProcessChecker)
	procs.On("Running", socket.DaemonProcessName).Return(false)

	c := client.New(s.socketPath(), socket.WithProcessChecker(procs))

	_, err := c.Status(s.ctx)
	s.ErrorIs(err, socket.ErrNotRunning)
	procs.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestStatus() {
	st, err := s.client.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal("ready", st.State)
	s.Equal(uint64(1), st.Generation)
	s.NotEmpty(st.Version)
}

func (s *ClientTestSuite) TestReload() {
	res, err := s.client.Reload(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), res.Generation)
	s.Equal(int64(2), res.Reloads)
}

func (s *ClientTestSuite) TestRender() {
	res, err := s.client.Render(s.ctx, api.RenderRequest{
		Key:          "hello",
		Prefixed:     true,
		Placeholders: []api.Placeholder{{Name: "name", Value: "<b>Bob</b>"}},
	})
	s.Require().NoError(err)
	s.Equal("messages.hello", res.Path)
	s.Equal("[S] hello <b>Bob</b>", res.Text)
	s.NotEmpty(res.ANSI)

	res, err = s.client.Render(s.ctx, api.RenderRequest{
		Key:          "hello",
		Placeholders: []api.Placeholder{{Name: "name", Value: "<b>Bob</b>", Parsed: true}},
	})
	s.Require().NoError(err)
	s.Equal("hello Bob", res.Text)
}

func (s *ClientTestSuite) TestJoinSendInboxLeave() {
	r, err := s.client.Join(s.ctx, "Alice", []string{"chat.staff"})
	s.Require().NoError(err)
	s.NotEmpty(r.ID)

	_, err = s.client.Join(s.ctx, "alice", nil)
	s.ErrorIs(err, client.ErrDaemon)
	s.Contains(err.Error(), "409")

	s.Require().NoError(s.client.Send(s.ctx, api.SendRequest{
		RecipientID:  r.ID,
		Key:          "hello",
		Placeholders: []api.Placeholder{{Name: "name", Value: "Alice"}},
	}))

	inbox, err := s.client.Inbox(s.ctx, r.ID, true)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal("hello Alice", inbox[0].Text)
	s.Equal(audience.ChannelChat, inbox[0].Channel)

	inbox, err = s.client.Inbox(s.ctx, r.ID, false)
	s.Require().NoError(err)
	s.Empty(inbox)

	recipients, err := s.client.Recipients(s.ctx)
	s.Require().NoError(err)
	s.Len(recipients, 1)

	s.Require().NoError(s.client.Leave(s.ctx, r.ID))
	err = s.client.Leave(s.ctx, r.ID)
	s.ErrorIs(err, client.ErrDaemon)
	s.Contains(err.Error(), "unknown recipient")
}

func (s *ClientTestSuite) TestSendUnknownRecipient() {
	err := s.client.Send(s.ctx, api.SendRequest{RecipientID: "nope", Key: "hello"})
	s.ErrorIs(err, client.ErrDaemon)
	s.Contains(err.Error(), "404")
}

func (s *ClientTestSuite) TestBroadcast() {
	_, err := s.client.Join(s.ctx, "Alice", []string{"chat.*"})
	s.Require().NoError(err)
	_, err = s.client.Join(s.ctx, "Bob", nil)
	s.Require().NoError(err)

	n, err := s.client.Broadcast(s.ctx, api.BroadcastRequest{Key: "hello"})
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.client.Broadcast(s.ctx, api.BroadcastRequest{Key: "hello", Permission: "chat.staff"})
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.client.Broadcast(s.ctx, api.BroadcastRequest{})
	s.ErrorIs(err, client.ErrDaemon)
	s.Contains(err.Error(), "key required")
}

func (s *ClientTestSuite) TestMessages() {
	entries, err := s.client.Messages(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Equal("hello", entries[0].Key)
	s.Equal("messages.hello", entries[0].Path)
	s.Equal("<red>hello <name></red>", entries[0].Template)
	s.Equal([]string{"one", "two"}, entries[1].Templates)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
