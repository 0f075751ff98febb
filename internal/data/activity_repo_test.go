package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/testutil"
)

func seedOwner(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	repo := NewUserRecordRepo(db, nil)
	require.NoError(t, repo.CreateByID(context.Background(), id, identity.RecordPatch{
		Email: testutil.StringPtr(id + "@example.com"),
	}))
}

func TestActivityRepo_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedOwner(t, db, "u1")
		repo := NewActivityRepo(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, activity.Activity{
			Owner:           "u1",
			Name:            "Morning run",
			Type:            activity.TypeRunning,
			DurationMinutes: 30,
			Date:            time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.Featured)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Morning run", got.Name)
		assert.Equal(t, activity.TypeRunning, got.Type)
		assert.Equal(t, 30, got.DurationMinutes)
	})
}

func TestActivityRepo_CreateValidates(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewActivityRepo(db)

		_, err := repo.Create(context.Background(), activity.Activity{
			Owner: "u1",
			Name:  "Mystery",
			Type:  activity.Type("Swimming"),
			Date:  time.Now(),
		})
		assert.True(t, errorsx.IsValidation(err))
	})
}

func TestActivityRepo_ListByOwnerOrderedByDate(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedOwner(t, db, "u1")
		seedOwner(t, db, "u2")
		repo := NewActivityRepo(db)
		ctx := context.Background()

		base := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
		for i, name := range []string{"third", "first", "second"} {
			offsets := []int{2, 0, 1}
			_, err := repo.Create(ctx, activity.Activity{
				Owner:           "u1",
				Name:            name,
				Type:            activity.TypeWalking,
				DurationMinutes: 20,
				Date:            base.AddDate(0, 0, offsets[i]),
			})
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, activity.Activity{
			Owner:           "u2",
			Name:            "other owner",
			Type:            activity.TypeCardio,
			DurationMinutes: 10,
			Date:            base,
		})
		require.NoError(t, err)

		list, err := repo.ListByOwner(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "first", list[0].Name)
		assert.Equal(t, "second", list[1].Name)
		assert.Equal(t, "third", list[2].Name)
	})
}

func TestActivityRepo_UpdatePatchesFields(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedOwner(t, db, "u1")
		repo := NewActivityRepo(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, activity.Activity{
			Owner:           "u1",
			Name:            "Lift",
			Type:            activity.TypeWeightLifting,
			DurationMinutes: 45,
			Date:            time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		newType := activity.TypeCardio
		err = repo.Update(ctx, created.ID, activity.Patch{
			Name:            testutil.StringPtr("Intervals"),
			Type:            &newType,
			DurationMinutes: testutil.IntPtr(25),
			Featured:        testutil.BoolPtr(true),
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Intervals", got.Name)
		assert.Equal(t, activity.TypeCardio, got.Type)
		assert.Equal(t, 25, got.DurationMinutes)
		assert.True(t, got.Featured)
	})
}

func TestActivityRepo_UpdateMissingIsNotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewActivityRepo(db)

		err := repo.Update(context.Background(), "missing", activity.Patch{
			Name: testutil.StringPtr("nope"),
		})
		assert.True(t, errorsx.IsNotFound(err))
	})
}

func TestActivityRepo_Delete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		seedOwner(t, db, "u1")
		repo := NewActivityRepo(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, activity.Activity{
			Owner:           "u1",
			Name:            "Walk",
			Type:            activity.TypeWalking,
			DurationMinutes: 15,
			Date:            time.Now(),
		})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, created.ID))

		_, err = repo.GetByID(ctx, created.ID)
		assert.True(t, errorsx.IsNotFound(err))

		err = repo.Delete(ctx, created.ID)
		assert.True(t, errorsx.IsNotFound(err))
	})
}
