package mocks

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Krakenied/MiniMessenger/internal/filesys"
)

var _ filesys.FS = (*MockFS)(nil)

// MockFS is a testify mock of filesys.FS, the surface the message store uses
// to bootstrap, read and quarantine its backing file.
type MockFS struct {
	mock.Mock
}

// ExpectFile stubs Stat and ReadFile so path exists with data.
func (m *MockFS) ExpectFile(path string, data []byte) {
	m.On("Stat", path).Return(FileInfo{name: filepath.Base(path), size: int64(len(data))}, nil)
	m.On("ReadFile", path).Return(data, nil)
}

// ExpectQuarantine stubs the rename that moves path aside. Any target that
// starts with path and a dot is accepted.
func (m *MockFS) ExpectQuarantine(path string, err error) *mock.Call {
	return m.On("Rename", path, mock.MatchedBy(func(dst string) bool {
		return len(dst) > len(path)+1 && dst[:len(path)+1] == path+"."
	})).Return(err)
}

func (m *MockFS) Stat(p string) (fs.FileInfo, error) {
	args := m.Called(p)
	fi, _ := args.Get(0).(fs.FileInfo)
	return fi, args.Error(1)
}

func (m *MockFS) MkdirAll(p string, mode os.FileMode) error {
	return m.Called(p, mode).Error(0)
}

func (m *MockFS) Open(p string) (*os.File, error) {
	args := m.Called(p)
	f, _ := args.Get(0).(*os.File)
	return f, args.Error(1)
}

func (m *MockFS) ReadFile(p string) ([]byte, error) {
	args := m.Called(p)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockFS) CreateTemp(dir, pattern string) (*os.File, error) {
	args := m.Called(dir, pattern)
	f, _ := args.Get(0).(*os.File)
	return f, args.Error(1)
}

func (m *MockFS) Rename(from, to string) error {
	return m.Called(from, to).Error(0)
}

func (m *MockFS) Remove(p string) error {
	return m.Called(p).Error(0)
}

func (m *MockFS) Chmod(p string, mode os.FileMode) error {
	return m.Called(p, mode).Error(0)
}

// FileInfo is a regular file as ExpectFile reports it.
type FileInfo struct {
	name string
	size int64
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return fi.size }
func (fi FileInfo) Mode() fs.FileMode  { return 0o644 }
func (fi FileInfo) ModTime() time.Time { return time.Time{} }
func (fi FileInfo) IsDir() bool        { return false }
func (fi FileInfo) Sys() any           { return nil }
