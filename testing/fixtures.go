// Package testing provides test utilities and database setup for testing the link service
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestLink creates a link with a random short code and its identifier
// claim, mirroring what the production create path writes
func (tf *TestFixtures) CreateTestLink(ownerID *uint) (*models.Link, error) {
	code := randomCode(utils.ShortCodeLength)

	link := &models.Link{
		UUID:        uuid.New(),
		ShortCode:   code,
		OriginalURL: fmt.Sprintf("https://example.com/articles/%d", rand.Intn(1000000)),
		OwnerID:     ownerID,
		IsActive:    utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create test link: %w", err)
	}

	claim := &models.LinkIdentifier{Identifier: code, LinkID: link.ID}
	if err := tf.DB.DB.Create(claim).Error; err != nil {
		return nil, fmt.Errorf("failed to claim test link identifier: %w", err)
	}

	return link, nil
}

// CreateTestLinkWithSlug creates a link carrying a custom slug and claims
// both identifiers
func (tf *TestFixtures) CreateTestLinkWithSlug(ownerID *uint, slug string) (*models.Link, error) {
	link, err := tf.CreateTestLink(ownerID)
	if err != nil {
		return nil, err
	}

	link.CustomSlug = &slug
	if err := tf.DB.DB.Save(link).Error; err != nil {
		return nil, fmt.Errorf("failed to set custom slug: %w", err)
	}

	claim := &models.LinkIdentifier{Identifier: slug, LinkID: link.ID}
	if err := tf.DB.DB.Create(claim).Error; err != nil {
		return nil, fmt.Errorf("failed to claim test slug: %w", err)
	}

	return link, nil
}

// CreateTestClick records a single click for the given link at the given time
func (tf *TestFixtures) CreateTestClick(linkID uint, clickedAt time.Time, country, deviceType, ipHash string) (*models.Click, error) {
	click := &models.Click{
		LinkID:     linkID,
		ClickedAt:  clickedAt,
		Referrer:   "https://news.ycombinator.com/",
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		Country:    country,
		City:       "Berlin",
		DeviceType: deviceType,
		Browser:    "Chrome",
		OS:         "Linux",
		IPHash:     ipHash,
	}

	if err := tf.DB.DB.Create(click).Error; err != nil {
		return nil, fmt.Errorf("failed to create test click: %w", err)
	}

	return click, nil
}

// CreateTestClicks spreads count clicks over the last spanDays days
func (tf *TestFixtures) CreateTestClicks(linkID uint, count, spanDays int) ([]*models.Click, error) {
	countries := []string{"US", "DE", "FR", "US"}
	devices := []string{models.DeviceTypeDesktop, models.DeviceTypeMobile, models.DeviceTypeDesktop, models.DeviceTypeTablet}

	clicks := make([]*models.Click, 0, count)
	for i := 0; i < count; i++ {
		clickedAt := utils.UTCNow().AddDate(0, 0, -(i % spanDays))
		ipHash := utils.HashIP(fmt.Sprintf("203.0.113.%d", i%16))

		click, err := tf.CreateTestClick(linkID, clickedAt, countries[i%len(countries)], devices[i%len(devices)], ipHash)
		if err != nil {
			return nil, err
		}
		clicks = append(clicks, click)
	}

	return clicks, nil
}

// CreateTestCredential issues a credential row for the given owner and
// returns the raw key alongside it
func (tf *TestFixtures) CreateTestCredential(ownerID uint) (*models.APICredential, string, error) {
	rawKey := fmt.Sprintf("ck_%032x", rand.Int63())

	credential := &models.APICredential{
		OwnerID:   ownerID,
		KeyHash:   utils.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:8],
	}

	if err := tf.DB.DB.Create(credential).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create test credential: %w", err)
	}

	return credential, rawKey, nil
}

const codeAlphabet = utils.ShortCodeAlphabet

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
