// Package tests contains integration test cases for models and repository
// packages against a real PostgreSQL instance
package tests

import (
	"testing"
	"time"

	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	testingutil "github.com/clipr-app/clipr/testing"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTestDB skips the test when no test database is reachable, which keeps
// the suite runnable on machines without PostgreSQL.
func withTestDB(t *testing.T, testFunc func(*testingutil.TestDB)) {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			t.Logf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()
	testFunc(testDB)
}

func newLink(ownerID *uint, code string, slug *string) *models.Link {
	return &models.Link{
		UUID:        uuid.New(),
		ShortCode:   code,
		CustomSlug:  slug,
		OriginalURL: "https://example.com/page",
		OwnerID:     ownerID,
		IsActive:    utils.ToPtr(true),
	}
}

func TestLinkRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewLinkRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		owner := uint(1)

		t.Run("CreateWithIdentifiers", func(t *testing.T) {
			link := newLink(&owner, "abc0001", nil)
			require.NoError(t, repo.CreateWithIdentifiers(ctx, link))
			assert.NotZero(t, link.ID)

			taken, err := repo.IsTaken(ctx, "abc0001")
			require.NoError(t, err)
			assert.True(t, taken)
		})

		t.Run("DuplicateShortCodeRejected", func(t *testing.T) {
			require.NoError(t, repo.CreateWithIdentifiers(ctx, newLink(&owner, "abc0002", nil)))

			err := repo.CreateWithIdentifiers(ctx, newLink(&owner, "abc0002", nil))
			assert.ErrorIs(t, err, repository.ErrDuplicateKey)
		})

		t.Run("SlugCollidingWithShortCodeRejected", func(t *testing.T) {
			require.NoError(t, repo.CreateWithIdentifiers(ctx, newLink(&owner, "abc0003", nil)))

			slug := "abc0003"
			err := repo.CreateWithIdentifiers(ctx, newLink(&owner, "abc0004", &slug))
			assert.ErrorIs(t, err, repository.ErrDuplicateKey)

			// the failed insert must not leave a half-created link behind
			ghost, err := repo.Resolve(ctx, "abc0004")
			require.NoError(t, err)
			assert.Nil(t, ghost)
		})

		t.Run("Resolve", func(t *testing.T) {
			slug := "launch-day"
			link := newLink(&owner, "abc0005", &slug)
			require.NoError(t, repo.CreateWithIdentifiers(ctx, link))

			byCode, err := repo.Resolve(ctx, "abc0005")
			require.NoError(t, err)
			require.NotNil(t, byCode)
			assert.Equal(t, link.ID, byCode.ID)

			bySlug, err := repo.Resolve(ctx, "launch-day")
			require.NoError(t, err)
			require.NotNil(t, bySlug)
			assert.Equal(t, link.ID, bySlug.ID)

			missing, err := repo.Resolve(ctx, "zzz9999")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ResolveSkipsInactive", func(t *testing.T) {
			link := newLink(&owner, "abc0006", nil)
			require.NoError(t, repo.CreateWithIdentifiers(ctx, link))
			require.NoError(t, repo.Deactivate(ctx, link.ID))

			resolved, err := repo.Resolve(ctx, "abc0006")
			require.NoError(t, err)
			assert.Nil(t, resolved)

			// the identifier stays claimed even while inactive
			taken, err := repo.IsTaken(ctx, "abc0006")
			require.NoError(t, err)
			assert.True(t, taken)
		})

		t.Run("IncrementClickCount", func(t *testing.T) {
			link := newLink(&owner, "abc0007", nil)
			require.NoError(t, repo.CreateWithIdentifiers(ctx, link))

			for i := 0; i < 3; i++ {
				require.NoError(t, repo.IncrementClickCount(ctx, link.ID))
			}

			reloaded, err := repo.ByID(ctx, link.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, uint64(3), reloaded.ClickCount)
		})

		t.Run("ByUUID", func(t *testing.T) {
			link := newLink(&owner, "abc0008", nil)
			require.NoError(t, repo.CreateWithIdentifiers(ctx, link))

			found, err := repo.ByUUID(ctx, link.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, link.ID, found.ID)

			missing, err := repo.ByUUID(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("TotalClickCount", func(t *testing.T) {
			counted := uint(777)
			first := newLink(&counted, "abc0009", nil)
			second := newLink(&counted, "abc0010", nil)
			require.NoError(t, repo.CreateWithIdentifiers(ctx, first))
			require.NoError(t, repo.CreateWithIdentifiers(ctx, second))
			require.NoError(t, repo.IncrementClickCount(ctx, first.ID))
			require.NoError(t, repo.IncrementClickCount(ctx, second.ID))
			require.NoError(t, repo.IncrementClickCount(ctx, second.ID))

			total, err := repo.TotalClickCount(ctx, counted)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
		})

		t.Run("ByFilterSearch", func(t *testing.T) {
			link := newLink(&owner, "abc0011", nil)
			link.OriginalURL = "https://example.com/quarterly-report"
			require.NoError(t, repo.CreateWithIdentifiers(ctx, link))

			search := "quarterly"
			rows, err := repo.ByFilter(ctx, models.LinkFilter{OwnerID: &owner, Search: &search}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, link.ID, rows[0].ID)
		})
	})
}

func TestClickRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		linkRepo := repository.NewLinkRepository(testDB.DB)
		clickRepo := repository.NewClickRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		owner := uint(1)

		link := newLink(&owner, "clk0001", nil)
		require.NoError(t, linkRepo.CreateWithIdentifiers(ctx, link))

		since := utils.UTCNow().AddDate(0, 0, -30)
		today := utils.UTCNow()
		twoDaysAgo := utils.UTCNow().AddDate(0, 0, -2)
		longAgo := utils.UTCNow().AddDate(0, 0, -60)

		hashA := utils.HashIP("203.0.113.1")
		hashB := utils.HashIP("203.0.113.2")

		mustClick := func(at time.Time, country, device, ipHash string) {
			_, err := fixtures.CreateTestClick(link.ID, at, country, device, ipHash)
			require.NoError(t, err)
		}

		mustClick(today, "US", models.DeviceTypeDesktop, hashA)
		mustClick(today, "US", models.DeviceTypeDesktop, hashB)
		mustClick(twoDaysAgo, "DE", models.DeviceTypeMobile, hashA)
		mustClick(twoDaysAgo, "", models.DeviceTypeMobile, "")
		mustClick(longAgo, "FR", models.DeviceTypeTablet, hashA)

		t.Run("CountSince", func(t *testing.T) {
			count, err := clickRepo.CountSince(ctx, link.ID, since)
			require.NoError(t, err)
			assert.Equal(t, int64(4), count)
		})

		t.Run("DistinctVisitors", func(t *testing.T) {
			visitors, err := clickRepo.DistinctVisitors(ctx, link.ID, since)
			require.NoError(t, err)
			assert.Equal(t, int64(2), visitors)
		})

		t.Run("CountByDate", func(t *testing.T) {
			rows, err := clickRepo.CountByDate(ctx, link.ID, since)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.True(t, rows[0].Date.Before(rows[1].Date))
			assert.Equal(t, int64(2), rows[0].Count)
			assert.Equal(t, int64(2), rows[1].Count)
		})

		t.Run("TopFacetCountry", func(t *testing.T) {
			rows, err := clickRepo.TopFacet(ctx, link.ID, since, "country", 10)
			require.NoError(t, err)
			// the empty country row is excluded
			require.Len(t, rows, 2)
			assert.Equal(t, "US", rows[0].Value)
			assert.Equal(t, int64(2), rows[0].Count)
		})

		t.Run("TopFacetRejectsUnknownColumn", func(t *testing.T) {
			_, err := clickRepo.TopFacet(ctx, link.ID, since, "ip_hash; DROP TABLE clicks", 10)
			assert.Error(t, err)
		})

		t.Run("DeviceBreakdown", func(t *testing.T) {
			rows, err := clickRepo.DeviceBreakdown(ctx, link.ID, since)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, int64(2), rows[0].Count)
		})
	})
}

func TestAPICredentialRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewAPICredentialRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("ReplaceAndLookup", func(t *testing.T) {
			first := &models.APICredential{OwnerID: 10, KeyHash: utils.HashAPIKey("ck_first"), KeyPrefix: "ck_first"}
			require.NoError(t, repo.Replace(ctx, first))

			found, err := repo.ByKeyHash(ctx, utils.HashAPIKey("ck_first"))
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, uint(10), found.OwnerID)

			second := &models.APICredential{OwnerID: 10, KeyHash: utils.HashAPIKey("ck_second"), KeyPrefix: "ck_secon"}
			require.NoError(t, repo.Replace(ctx, second))

			gone, err := repo.ByKeyHash(ctx, utils.HashAPIKey("ck_first"))
			require.NoError(t, err)
			assert.Nil(t, gone)

			current, err := repo.ByOwnerID(ctx, 10)
			require.NoError(t, err)
			require.NotNil(t, current)
			assert.Equal(t, utils.HashAPIKey("ck_second"), current.KeyHash)
		})

		t.Run("TouchLastUsed", func(t *testing.T) {
			cred := &models.APICredential{OwnerID: 11, KeyHash: utils.HashAPIKey("ck_touch"), KeyPrefix: "ck_touch"}
			require.NoError(t, repo.Replace(ctx, cred))

			at := utils.UTCNow()
			require.NoError(t, repo.TouchLastUsed(ctx, cred.ID, at))

			reloaded, err := repo.ByOwnerID(ctx, 11)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			require.NotNil(t, reloaded.LastUsedAt)
			assert.WithinDuration(t, at, *reloaded.LastUsedAt, time.Second)
		})
	})
}
