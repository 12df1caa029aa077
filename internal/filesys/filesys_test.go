package filesys_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/Krakenied/MiniMessenger/internal/filesys"
	"github.com/Krakenied/MiniMessenger/internal/mocks"
)

type FilesysTestSuite struct {
	suite.Suite
	dir string
}

func (s *FilesysTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *FilesysTestSuite) TestAtomicWrite() {
	dst := filepath.Join(s.dir, "messages.yml")

	s.Require().NoError(filesys.AtomicWrite(filesys.OS(), dst, []byte("a: 1\n"), 0o640))

	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("a: 1\n", string(data))

	fi, err := os.Stat(dst)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o640), fi.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(s.dir, ".minimessenger-*"))
	s.Require().NoError(err)
	s.Empty(leftovers)
}

func (s *FilesysTestSuite) TestAtomicWriteReplaces() {
	dst := filepath.Join(s.dir, "messages.yml")
	s.Require().NoError(os.WriteFile(dst, []byte("old"), 0o644))

	s.Require().NoError(filesys.AtomicWrite(filesys.OS(), dst, []byte("new"), 0o644))

	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("new", string(data))
}

func (s *FilesysTestSuite) TestAtomicWriteRenameFailureRemovesTemp() {
	dst := filepath.Join(s.dir, "messages.yml")
	tmp, err := os.CreateTemp(s.dir, ".minimessenger-*")
	s.Require().NoError(err)

	mfs := new(mocks.MockFS)
	mfs.On("CreateTemp", s.dir, ".minimessenger-*").Return(tmp, nil)
	mfs.On("Chmod", tmp.Name(), os.FileMode(0o644)).Return(nil)
	mfs.On("Rename", tmp.Name(), dst).Return(errors.New("rename failed"))
	mfs.On("Remove", tmp.Name()).Return(nil)

	err = filesys.AtomicWrite(mfs, dst, []byte("x"), 0o644)
	s.EqualError(err, "rename failed")
	mfs.AssertExpectations(s.T())
	mfs.AssertNotCalled(s.T(), "Open", mock.Anything)
}

func (s *FilesysTestSuite) TestAtomicWriteCreateTempFailure() {
	mfs := new(mocks.MockFS)
	mfs.On("CreateTemp", s.dir, ".minimessenger-*").Return(nil, os.ErrPermission)

	err := filesys.AtomicWrite(mfs, filepath.Join(s.dir, "x"), []byte("x"), 0o644)
	s.ErrorIs(err, os.ErrPermission)
	mfs.AssertExpectations(s.T())
}

func TestFilesysTestSuite(t *testing.T) {
	suite.Run(t, new(FilesysTestSuite))
}
