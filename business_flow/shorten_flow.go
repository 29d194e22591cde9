package businessflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/clipr-app/clipr/app/dto"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
)

// ShortenFlow handles creation and management of links
// Generated short codes are allocated with bounded retries and the storage
// layer is the final arbiter of identifier uniqueness
type ShortenFlow interface {
	CreateLink(ctx context.Context, req *dto.CreateLinkRequest) (*dto.CreateLinkResponse, error)
	GetLink(ctx context.Context, linkUUID uuid.UUID, ownerID uint) (*dto.LinkResponse, error)
	ListLinks(ctx context.Context, req *dto.ListLinksRequest) (*dto.ListLinksResponse, error)
	UpdateLink(ctx context.Context, linkUUID uuid.UUID, req *dto.UpdateLinkRequest) (*dto.UpdateLinkResponse, error)
	DeactivateLink(ctx context.Context, linkUUID uuid.UUID, ownerID uint) error
	CheckSlug(ctx context.Context, slug string) (*dto.SlugAvailabilityResponse, error)
}

type ShortenFlowImpl struct {
	linkRepo    repository.LinkRepository
	cache       LinkCache
	domain      string
	codeLength  int
	maxAttempts int
}

func NewShortenFlow(linkRepo repository.LinkRepository, cache LinkCache, domain string, codeLength, maxAttempts int) ShortenFlow {
	if codeLength <= 0 {
		codeLength = utils.ShortCodeLength
	}
	if maxAttempts <= 0 {
		maxAttempts = utils.ShortCodeMaxAttempts
	}
	return &ShortenFlowImpl{
		linkRepo:    linkRepo,
		cache:       cache,
		domain:      strings.TrimSuffix(domain, "/"),
		codeLength:  codeLength,
		maxAttempts: maxAttempts,
	}
}

func repositoryDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicateKey)
}

func validateOriginalURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrOriginalURLEmpty
	}
	if len(raw) > 2048 {
		return ErrOriginalURLTooLong
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrOriginalURLInvalid
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrOriginalURLInvalid
	}
	return nil
}

func (f *ShortenFlowImpl) mapLinkDTO(link *models.Link) dto.LinkResponse {
	return dto.LinkResponse{
		UUID:        link.UUID.String(),
		ShortCode:   link.ShortCode,
		CustomSlug:  link.CustomSlug,
		ShortURL:    fmt.Sprintf("%s/%s", f.domain, link.DisplayCode()),
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		IsActive:    utils.IsTrue(link.IsActive),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

func (f *ShortenFlowImpl) CreateLink(ctx context.Context, req *dto.CreateLinkRequest) (*dto.CreateLinkResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request body is required", nil)
	}
	if err := validateOriginalURL(req.OriginalURL); err != nil {
		return nil, err
	}

	var customSlug *string
	if req.CustomSlug != nil && *req.CustomSlug != "" {
		slug := *req.CustomSlug
		if err := ValidateSlug(slug); err != nil {
			return nil, err
		}
		taken, err := f.linkRepo.IsTaken(ctx, slug)
		if err != nil {
			return nil, NewBusinessError("SLUG_CHECK_FAILED", "Failed to check slug availability", err)
		}
		if taken {
			return nil, ErrIdentifierTaken
		}
		customSlug = &slug
	}

	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}

	link, err := f.createWithRetry(ctx, req.OwnerID, req.OriginalURL, customSlug, title)
	if err != nil {
		return nil, err
	}

	return &dto.CreateLinkResponse{
		Message: "Link created",
		Item:    f.mapLinkDTO(link),
	}, nil
}

// createWithRetry allocates a short code and inserts the link. A duplicate
// key on a generated code means a race with another creation, so a fresh
// code is drawn; a duplicate on a custom slug surfaces as taken.
func (f *ShortenFlowImpl) createWithRetry(ctx context.Context, ownerID *uint, originalURL string, customSlug *string, title string) (*models.Link, error) {
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		code, err := AllocateShortCode(ctx, f.linkRepo, f.codeLength, f.maxAttempts)
		if err != nil {
			return nil, err
		}

		link := &models.Link{
			UUID:        uuid.New(),
			ShortCode:   code,
			CustomSlug:  customSlug,
			OriginalURL: originalURL,
			OwnerID:     ownerID,
			Title:       title,
			IsActive:    utils.ToPtr(true),
			CreatedAt:   utils.UTCNow(),
			UpdatedAt:   utils.UTCNow(),
		}

		err = f.linkRepo.CreateWithIdentifiers(ctx, link)
		if err == nil {
			return link, nil
		}
		if !repositoryDuplicate(err) {
			return nil, NewBusinessError("CREATE_LINK_FAILED", "Failed to create link", err)
		}
		if customSlug != nil {
			return nil, ErrIdentifierTaken
		}
	}
	return nil, ErrCodeSpaceExhausted
}

func (f *ShortenFlowImpl) GetLink(ctx context.Context, linkUUID uuid.UUID, ownerID uint) (*dto.LinkResponse, error) {
	link, err := f.ownedLink(ctx, linkUUID, ownerID)
	if err != nil {
		return nil, err
	}
	resp := f.mapLinkDTO(link)
	return &resp, nil
}

func (f *ShortenFlowImpl) ListLinks(ctx context.Context, req *dto.ListLinksRequest) (*dto.ListLinksResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request body is required", nil)
	}
	if req.Page < 1 {
		return nil, ErrInvalidPage
	}
	if req.Limit < 1 || req.Limit > 100 {
		return nil, ErrInvalidPageSize
	}

	var orderBy string
	switch req.OrderBy {
	case "", "newest":
		orderBy = "created_at DESC"
	case "oldest":
		orderBy = "created_at ASC"
	case "most_clicked":
		orderBy = "click_count DESC, created_at DESC"
	default:
		return nil, ErrInvalidOrderBy
	}

	filter := models.LinkFilter{OwnerID: &req.OwnerID}
	if req.Filter != nil {
		filter.Search = req.Filter.Search
		filter.IsActive = req.Filter.IsActive
	}

	total, err := f.linkRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_LINKS_FAILED", "Failed to count links", err)
	}

	offset := (req.Page - 1) * req.Limit
	rows, err := f.linkRepo.ByFilter(ctx, filter, orderBy, req.Limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_LINKS_FAILED", "Failed to list links", err)
	}

	items := make([]dto.LinkResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, f.mapLinkDTO(row))
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &dto.ListLinksResponse{
		Message: "Links fetched",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       req.Page,
			Limit:      req.Limit,
			TotalPages: totalPages,
		},
	}, nil
}

func (f *ShortenFlowImpl) UpdateLink(ctx context.Context, linkUUID uuid.UUID, req *dto.UpdateLinkRequest) (*dto.UpdateLinkResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request body is required", nil)
	}
	if req.OriginalURL == nil && req.Title == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "At least one field must be provided for update", nil)
	}

	link, err := f.ownedLink(ctx, linkUUID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if req.OriginalURL != nil {
		if err := validateOriginalURL(*req.OriginalURL); err != nil {
			return nil, err
		}
		link.OriginalURL = *req.OriginalURL
	}
	if req.Title != nil {
		link.Title = strings.TrimSpace(*req.Title)
	}

	if err := f.linkRepo.Update(ctx, link); err != nil {
		return nil, NewBusinessError("UPDATE_LINK_FAILED", "Failed to update link", err)
	}
	f.invalidate(ctx, link)

	return &dto.UpdateLinkResponse{
		Message: "Link updated",
		Item:    f.mapLinkDTO(link),
	}, nil
}

func (f *ShortenFlowImpl) DeactivateLink(ctx context.Context, linkUUID uuid.UUID, ownerID uint) error {
	link, err := f.ownedLink(ctx, linkUUID, ownerID)
	if err != nil {
		return err
	}
	if err := f.linkRepo.Deactivate(ctx, link.ID); err != nil {
		return NewBusinessError("DEACTIVATE_LINK_FAILED", "Failed to deactivate link", err)
	}
	f.invalidate(ctx, link)
	return nil
}

func (f *ShortenFlowImpl) CheckSlug(ctx context.Context, slug string) (*dto.SlugAvailabilityResponse, error) {
	if err := ValidateSlug(slug); err != nil {
		return &dto.SlugAvailabilityResponse{Slug: slug, Available: false, Reason: SlugRejectionReason(err)}, nil
	}
	taken, err := f.linkRepo.IsTaken(ctx, slug)
	if err != nil {
		return nil, NewBusinessError("SLUG_CHECK_FAILED", "Failed to check slug availability", err)
	}
	if taken {
		return &dto.SlugAvailabilityResponse{Slug: slug, Available: false, Reason: SlugRejectionReason(ErrIdentifierTaken)}, nil
	}
	return &dto.SlugAvailabilityResponse{Slug: slug, Available: true}, nil
}

// ownedLink fetches a link by UUID and enforces that the caller owns it.
func (f *ShortenFlowImpl) ownedLink(ctx context.Context, linkUUID uuid.UUID, ownerID uint) (*models.Link, error) {
	link, err := f.linkRepo.ByUUID(ctx, linkUUID)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if link.OwnerID == nil || *link.OwnerID != ownerID {
		return nil, ErrLinkAccessDenied
	}
	return link, nil
}

func (f *ShortenFlowImpl) invalidate(ctx context.Context, link *models.Link) {
	if f.cache == nil {
		return
	}
	identifiers := []string{link.ShortCode}
	if link.CustomSlug != nil && *link.CustomSlug != "" {
		identifiers = append(identifiers, *link.CustomSlug)
	}
	_ = f.cache.InvalidateLink(ctx, identifiers...)
}
