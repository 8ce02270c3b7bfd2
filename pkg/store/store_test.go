package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/stitchkit/stitch.go/pkg/constants"
)

type StoreTestSuite struct {
	suite.Suite
	newStore func() Store
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{newStore: func() Store { return NewMemory() }})
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	n := 0
	suite.Run(t, &StoreTestSuite{newStore: func() Store {
		n++
		return NewFile(filepath.Join(dir, "nested", string(rune('a'+n)), "auth.json"))
	}})
}

func (s *StoreTestSuite) info(userID string) *AuthInfo {
	return &AuthInfo{
		UserID:       userID,
		DeviceID:     "device-1",
		ProviderType: "api-key",
		ProviderName: "api-key",
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		LoggedInAt:   time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
}

func (s *StoreTestSuite) TestLoadEmpty() {
	_, err := s.newStore().Load(context.Background(), "app-1")
	s.Require().ErrorIs(err, constants.ErrAuthInfoNotFound)
}

func (s *StoreTestSuite) TestSaveLoadClear() {
	ctx := context.Background()
	st := s.newStore()

	s.Require().NoError(st.Save(ctx, "app-1", s.info("u1")))
	s.Require().NoError(st.Save(ctx, "app-2", s.info("u2")))

	got, err := st.Load(ctx, "app-1")
	s.Require().NoError(err)
	s.Equal("u1", got.UserID)
	s.Equal("refresh-u1", got.RefreshToken)
	s.True(got.LoggedInAt.Equal(s.info("u1").LoggedInAt))

	s.Require().NoError(st.Clear(ctx, "app-1"))
	_, err = st.Load(ctx, "app-1")
	s.Require().ErrorIs(err, constants.ErrAuthInfoNotFound)

	got, err = st.Load(ctx, "app-2")
	s.Require().NoError(err)
	s.Equal("u2", got.UserID)
}

func (s *StoreTestSuite) TestSaveReplaces() {
	ctx := context.Background()
	st := s.newStore()

	s.Require().NoError(st.Save(ctx, "app-1", s.info("u1")))
	s.Require().NoError(st.Save(ctx, "app-1", s.info("u3")))

	got, err := st.Load(ctx, "app-1")
	s.Require().NoError(err)
	s.Equal("u3", got.UserID)
}

func (s *StoreTestSuite) TestClearMissingIsNoop() {
	s.Require().NoError(s.newStore().Clear(context.Background(), "nope"))
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	st := NewFile(path)
	if err := st.Save(context.Background(), "app-1", &AuthInfo{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("auth file mode = %v, want 0600", fi.Mode().Perm())
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFile(path).Load(context.Background(), "app-1"); err == nil {
		t.Fatal("expected parse error")
	}
}
