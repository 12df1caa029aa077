package socket_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/mocks"
	"github.com/Krakenied/MiniMessenger/internal/socket"
)

type SocketTestSuite struct {
	suite.Suite
	dir      string
	sockPath string
	procs    *mocks.MockProcessChecker
	logs     *observer.ObservedLogs
	restore  func()
}

func (s *SocketTestSuite) SetupTest() {
	// t.TempDir paths can exceed the sun_path limit.
	dir, err := os.MkdirTemp("", "mm-sock-*")
	s.Require().NoError(err)
	s.dir = dir
	s.sockPath = filepath.Join(dir, "run", "minimessengerd.sock")

	s.procs = new(mocks.MockProcessChecker)

	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	s.restore = log.SetLogger(zap.New(core).Sugar())
}

func (s *SocketTestSuite) TearDownTest() {
	s.restore()
	_ = os.RemoveAll(s.dir)
}

func (s *SocketTestSuite) dialOpts(timeout time.Duration) []socket.Option {
	return []socket.Option{
		socket.WithProcessChecker(s.procs),
		socket.WithStartupTimeout(timeout),
		socket.WithRetryInterval(20 * time.Millisecond),
	}
}

// leaveStaleSocket binds path and closes the listener without unlinking,
// the way a crashed daemon leaves it.
func (s *SocketTestSuite) leaveStaleSocket() {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.sockPath), 0o755))
	l, err := net.Listen("unix", s.sockPath)
	s.Require().NoError(err)
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	s.Require().NoError(l.Close())
}

func (s *SocketTestSuite) serve(l net.Listener) {
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
}

func (s *SocketTestSuite) TestListen() {
	testCases := []struct {
		name        string
		setup       func()
		expectErr   error
		expectMsg   string
		staleLogged bool
	}{
		{
			name:  "creates missing directory",
			setup: func() {},
		},
		{
			name:        "replaces stale socket",
			setup:       s.leaveStaleSocket,
			staleLogged: true,
		},
		{
			name: "live daemon owns socket",
			setup: func() {
				l, err := socket.Listen(s.sockPath)
				s.Require().NoError(err)
				s.serve(l)
				s.T().Cleanup(func() { l.Close() })
			},
			expectErr: socket.ErrAddressInUse,
		},
		{
			name: "regular file in the way",
			setup: func() {
				s.Require().NoError(os.MkdirAll(filepath.Dir(s.sockPath), 0o755))
				s.Require().NoError(os.WriteFile(s.sockPath, []byte("keep me"), 0o644))
			},
			expectErr: socket.ErrNotSocket,
		},
		{
			name: "directory blocked by file",
			setup: func() {
				s.Require().NoError(os.WriteFile(filepath.Dir(s.sockPath), nil, 0o644))
			},
			expectMsg: "creating socket directory",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.TearDownTest()
			s.SetupTest()
			tc.setup()

			l, err := socket.Listen(s.sockPath)

			switch {
			case tc.expectErr != nil:
				s.ErrorIs(err, tc.expectErr)
				s.Nil(l)
			case tc.expectMsg != "":
				s.ErrorContains(err, tc.expectMsg)
				s.Nil(l)
			default:
				s.Require().NoError(err)
				defer l.Close()

				fi, err := os.Stat(s.sockPath)
				s.Require().NoError(err)
				s.NotZero(fi.Mode() & os.ModeSocket)
				s.Equal(socket.DefaultMode, fi.Mode().Perm())
			}

			s.Equal(tc.staleLogged, s.logs.FilterMessage("removed stale socket").Len() == 1)
		})
	}
}

func (s *SocketTestSuite) TestListenLeavesForeignFile() {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.sockPath), 0o755))
	s.Require().NoError(os.WriteFile(s.sockPath, []byte("keep me"), 0o644))

	_, err := socket.Listen(s.sockPath)
	s.ErrorIs(err, socket.ErrNotSocket)

	data, err := os.ReadFile(s.sockPath)
	s.Require().NoError(err)
	s.Equal("keep me", string(data))
}

func (s *SocketTestSuite) TestListenMode() {
	l, err := socket.Listen(s.sockPath, socket.WithMode(0o660))
	s.Require().NoError(err)
	defer l.Close()

	fi, err := os.Stat(s.sockPath)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o660), fi.Mode().Perm())
}

func (s *SocketTestSuite) TestDial() {
	l, err := socket.Listen(s.sockPath)
	s.Require().NoError(err)
	defer l.Close()
	s.serve(l)

	conn, err := socket.Dial(context.Background(), s.sockPath, s.dialOpts(time.Second)...)
	s.Require().NoError(err)
	s.NoError(conn.Close())
	s.procs.AssertNotCalled(s.T(), "Running", socket.DaemonProcessName)
}

func (s *SocketTestSuite) TestDialDaemonNotRunning() {
	s.procs.On("Running", socket.DaemonProcessName).Return(false)

	start := time.Now()
	conn, err := socket.Dial(context.Background(), s.sockPath, s.dialOpts(5*time.Second)...)

	s.ErrorIs(err, socket.ErrNotRunning)
	s.Nil(conn)
	s.Less(time.Since(start), time.Second)
	s.procs.AssertNumberOfCalls(s.T(), "Running", 1)
}

func (s *SocketTestSuite) TestDialGivesUpAfterStartupTimeout() {
	s.procs.On("Running", socket.DaemonProcessName).Return(true)

	start := time.Now()
	_, err := socket.Dial(context.Background(), s.sockPath, s.dialOpts(150*time.Millisecond)...)

	s.ErrorIs(err, socket.ErrNotRunning)
	s.ErrorContains(err, "no answer within 150ms")
	s.GreaterOrEqual(time.Since(start), 150*time.Millisecond)
}

func (s *SocketTestSuite) TestDialWaitsForStartingDaemon() {
	s.procs.On("Running", socket.DaemonProcessName).Return(true)

	go func() {
		time.Sleep(200 * time.Millisecond)
		l, err := socket.Listen(s.sockPath)
		if err != nil {
			return
		}
		s.T().Cleanup(func() { l.Close() })
		s.serve(l)
	}()

	start := time.Now()
	conn, err := socket.Dial(context.Background(), s.sockPath, s.dialOpts(2*time.Second)...)
	s.Require().NoError(err)
	s.NoError(conn.Close())
	s.GreaterOrEqual(time.Since(start), 200*time.Millisecond)
}

func (s *SocketTestSuite) TestDialCanceled() {
	s.procs.On("Running", socket.DaemonProcessName).Return(true).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := socket.Dial(ctx, s.sockPath, s.dialOpts(time.Second)...)
	s.ErrorIs(err, context.Canceled)
}

func (s *SocketTestSuite) TestCleanup() {
	s.NoError(socket.Cleanup(s.sockPath), "missing socket")

	s.leaveStaleSocket()
	s.NoError(socket.Cleanup(s.sockPath))
	s.NoFileExists(s.sockPath)

	s.Require().NoError(os.WriteFile(s.sockPath, nil, 0o600))
	s.ErrorIs(socket.Cleanup(s.sockPath), socket.ErrNotSocket)
	s.FileExists(s.sockPath)
}

type process struct {
	pid int
	exe string
}

func (p process) Pid() int           { return p.pid }
func (p process) PPid() int          { return 1 }
func (p process) Executable() string { return p.exe }

func (s *SocketTestSuite) TestProcesses() {
	testCases := []struct {
		name  string
		table []string
		query string
		want  bool
	}{
		{name: "exact", table: []string{"init", "minimessengerd"}, query: "minimessengerd", want: true},
		{name: "case and exe suffix", table: []string{"MiniMessengerD.exe"}, query: "minimessengerd", want: true},
		{name: "cli is not the daemon", table: []string{"minimessenger"}, query: "minimessengerd", want: false},
		{name: "longer name is not a match", table: []string{"minimessengerd-old"}, query: "minimessengerd", want: false},
		{name: "truncated kernel name", table: []string{"minimessenger-d"}, query: "minimessenger-daemon", want: true},
		{name: "empty table", query: "minimessengerd", want: false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			procs := socket.NewProcesses(func() ([]ps.Process, error) {
				out := make([]ps.Process, 0, len(tc.table))
				for i, exe := range tc.table {
					out = append(out, process{pid: i + 1, exe: exe})
				}
				return out, nil
			})
			s.Equal(tc.want, procs.Running(tc.query))
		})
	}
}

func (s *SocketTestSuite) TestProcessesListError() {
	procs := socket.NewProcesses(func() ([]ps.Process, error) {
		return nil, errors.New("no /proc")
	})

	s.False(procs.Running(socket.DaemonProcessName))
	s.Equal(1, s.logs.FilterMessage("listing processes failed").Len())
}

func TestSocketSuite(t *testing.T) {
	suite.Run(t, new(SocketTestSuite))
}
