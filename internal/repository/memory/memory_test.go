package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
	"github.com/iliyamo/auth-session-engine/internal/model"
	"github.com/iliyamo/auth-session-engine/internal/repository"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func TestUserStore_EmailUniqueAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	require.NoError(t, s.Create(ctx, model.NewUser("u-1", "a@b.io", "h", "A", t0)))
	assert.ErrorIs(t, s.Create(ctx, model.NewUser("u-2", "a@b.io", "h", "B", t0)), repository.ErrEmailExists)

	ok, err := s.ExistsActiveByEmail(ctx, "a@b.io")
	require.NoError(t, err)
	assert.True(t, ok)

	s.SoftDelete("u-1", t0)
	_, err = s.FindActiveByID(ctx, "u-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	ok, err = s.ExistsActiveByEmail(ctx, "a@b.io")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ExistsActiveByEmail(ctx, "nobody@b.io")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_DuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	rec := model.NewRefreshToken("r-1", "u-1", "fp", t0.Add(time.Hour), t0)
	require.NoError(t, s.Put(ctx, rec))
	assert.ErrorIs(t, s.Put(ctx, rec), repository.ErrDuplicateFingerprint)
}

func TestTokenStore_RotateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Put(ctx, model.NewRefreshToken("r-1", "u-1", "fp-1", t0.Add(time.Hour), t0)))

	next := func(_ context.Context, cur model.RefreshToken) (model.RefreshToken, error) {
		return model.NewRefreshToken("r-2", cur.UserID, "fp-2", t0.Add(2*time.Hour), t0), nil
	}
	_, err := s.Rotate(ctx, "fp-1", t0, next)
	require.NoError(t, err)

	_, err = s.Rotate(ctx, "fp-1", t0, next)
	assert.True(t, autherr.Is(err, autherr.TokenRevoked), "got %v", err)

	old, err := s.FindByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
}

func TestTokenStore_RotateFailureLeavesRecordActive(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Put(ctx, model.NewRefreshToken("r-1", "u-1", "fp-1", t0.Add(time.Hour), t0)))

	_, err := s.Rotate(ctx, "fp-1", t0, func(context.Context, model.RefreshToken) (model.RefreshToken, error) {
		return model.RefreshToken{}, autherr.NewUserNotFound("u-1")
	})
	assert.True(t, autherr.Is(err, autherr.UserNotFound))

	rec, err := s.FindByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, rec.Valid(t0))
}

func TestTokenStore_ConcurrentRotationHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Put(ctx, model.NewRefreshToken("r-0", "u-1", "fp-0", t0.Add(time.Hour), t0)))

	const workers = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		wins    atomic.Int32
		revoked atomic.Int32
		seq     atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Rotate(ctx, "fp-0", t0, func(_ context.Context, cur model.RefreshToken) (model.RefreshToken, error) {
				n := seq.Add(1)
				return model.NewRefreshToken(fmt.Sprintf("r-%d", n), cur.UserID, fmt.Sprintf("fp-%d", n), t0.Add(time.Hour), t0), nil
			})
			switch {
			case err == nil:
				wins.Add(1)
			case autherr.Is(err, autherr.TokenRevoked):
				revoked.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, workers-1, revoked.Load())
}

func TestTokenStore_RevokeAllForSubject(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Put(ctx, model.NewRefreshToken("r-1", "u-1", "fp-1", t0.Add(time.Hour), t0)))
	require.NoError(t, s.Put(ctx, model.NewRefreshToken("r-2", "u-1", "fp-2", t0.Add(time.Hour), t0)))
	require.NoError(t, s.Put(ctx, model.NewRefreshToken("r-3", "u-2", "fp-3", t0.Add(time.Hour), t0)))

	n, err := s.RevokeAllForSubject(ctx, "u-1", t0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	other, err := s.FindByFingerprint(ctx, "fp-3")
	require.NoError(t, err)
	assert.False(t, other.Revoked)
}

func TestSessionStore_ListActiveOrder(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	for i, id := range []string{"s-a", "s-b", "s-c"} {
		ds := model.DeviceSession{ID: id, UserID: "u-1"}
		ds.OnCreate(t0.Add(time.Duration(i) * time.Second))
		require.NoError(t, s.Create(ctx, ds))
	}
	tie := model.DeviceSession{ID: "s-d", UserID: "u-1"}
	tie.OnCreate(t0.Add(2 * time.Second))
	require.NoError(t, s.Create(ctx, tie))

	require.NoError(t, s.Revoke(ctx, "s-a", t0))
	require.NoError(t, s.Revoke(ctx, "missing", t0))

	got, err := s.ListActive(ctx, "u-1")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, ds := range got {
		ids = append(ids, ds.ID)
	}
	assert.Equal(t, []string{"s-d", "s-c", "s-b"}, ids)

	require.NoError(t, s.RevokeAll(ctx, "u-1", t0))
	got, err = s.ListActive(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
