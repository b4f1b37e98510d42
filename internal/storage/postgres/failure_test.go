package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/config"
	"github.com/cory-johannsen/gamecmd/internal/storage/postgres"
	"github.com/cory-johannsen/gamecmd/internal/testutil"
)

type actor string

func (a actor) Name(context.Context) (string, error) { return string(a), nil }

func failure(kind command.FailureKind, input string) command.Failure {
	return command.Failure{
		InvocationID: uuid.NewString(),
		Actor:        actor("Bob"),
		Input:        input,
		Command:      input,
		Kind:         kind,
		Message:      "Command " + input + " not found",
	}
}

func TestNewPool_DisabledConfig(t *testing.T) {
	_, err := postgres.NewPool(context.Background(), config.DatabaseConfig{})
	assert.ErrorIs(t, err, postgres.ErrDisabled)
}

func TestFailureRepository_RecordAndRecent(t *testing.T) {
	repo := postgres.NewFailureRepository(testutil.NewPool(t), zap.NewNop())
	ctx := context.Background()

	first, err := repo.Record(ctx, failure(command.CommandNotFound, "warp"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "Bob", first.Actor)
	assert.Equal(t, "CommandNotFound", first.Kind)
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(10 * time.Millisecond)
	second, err := repo.Record(ctx, failure(command.MissingArguments, "give"))
	require.NoError(t, err)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)
	assert.Equal(t, first.InvocationID, recent[1].InvocationID)
	assert.Equal(t, "Command warp not found", recent[1].Message)

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFailureRepository_RecordRejectsBadInvocationID(t *testing.T) {
	repo := postgres.NewFailureRepository(testutil.NewPool(t), zap.NewNop())
	f := failure(command.CommandNotFound, "x")
	f.InvocationID = "not-a-uuid"
	_, err := repo.Record(context.Background(), f)
	assert.Error(t, err)
}

func TestFailureRepository_CommandFailedLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	repo := postgres.NewFailureRepository(testutil.NewPool(t), zap.New(core))
	f := failure(command.CommandNotFound, "x")
	f.InvocationID = "bad"

	repo.CommandFailed(context.Background(), f)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestFailureRepository_CountAndPurge(t *testing.T) {
	repo := postgres.NewFailureRepository(testutil.NewPool(t), zap.NewNop())
	ctx := context.Background()

	for _, f := range []command.Failure{
		failure(command.CommandNotFound, "a"),
		failure(command.CommandNotFound, "b"),
		failure(command.TypeParsingFailed, "c"),
	} {
		repo.CommandFailed(ctx, f)
	}

	counts, err := repo.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"CommandNotFound": 2, "TypeParsingFailed": 1}, counts)

	n, err := repo.PurgeBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestProperty_RecordedFailuresRoundTrip(t *testing.T) {
	repo := postgres.NewFailureRepository(testutil.NewPool(t), zap.NewNop())
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.StringMatching(`[a-z]{1,12}( [a-z0-9]{1,6}){0,3}`).Draw(rt, "input")
		kind := rapid.SampledFrom([]command.FailureKind{
			command.CommandNotFound, command.MissingArguments, command.TypeParsingFailed,
		}).Draw(rt, "kind")
		rec, err := repo.Record(ctx, failure(kind, input))
		if err != nil {
			rt.Fatalf("Record: %v", err)
		}
		recent, err := repo.Recent(ctx, 1000)
		if err != nil {
			rt.Fatalf("Recent: %v", err)
		}
		for _, got := range recent {
			if got.ID != rec.ID {
				continue
			}
			if got.Input != input || got.Kind != kind.String() || got.InvocationID != rec.InvocationID {
				rt.Fatalf("got %+v, want input %q kind %s", got, input, kind)
			}
			return
		}
		rt.Fatalf("record %s not returned by Recent", rec.ID)
	})
}
