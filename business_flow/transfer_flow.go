package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/xuri/excelize/v2"
)

// TransferFlow handles bulk export and import of an owner's links
// Exports carry links and optionally their clicks; imports accept a CSV of
// original URLs with optional slugs and titles
type TransferFlow interface {
	ExportLinksCSV(ctx context.Context, ownerID uint) (string, []byte, error)
	ExportLinksExcel(ctx context.Context, ownerID uint) (string, []byte, error)
	ImportLinksCSV(ctx context.Context, ownerID uint, r io.Reader) (*dto.ImportLinksResponse, error)
}

type TransferFlowImpl struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
	shorten   ShortenFlow
}

func NewTransferFlow(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository, shorten ShortenFlow) TransferFlow {
	return &TransferFlowImpl{linkRepo: linkRepo, clickRepo: clickRepo, shorten: shorten}
}

func (f *TransferFlowImpl) ownedLinks(ctx context.Context, ownerID uint) ([]*models.Link, error) {
	filter := models.LinkFilter{OwnerID: &ownerID}
	rows, err := f.linkRepo.ByFilter(ctx, filter, "created_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("FETCH_LINKS_FAILED", "Failed to fetch links", err)
	}
	return rows, nil
}

func linkExportRecord(link *models.Link) []string {
	slug := ""
	if link.CustomSlug != nil {
		slug = *link.CustomSlug
	}
	return []string{
		link.UUID.String(),
		link.ShortCode,
		slug,
		link.OriginalURL,
		link.Title,
		strconv.FormatBool(link.IsActive != nil && *link.IsActive),
		strconv.FormatUint(link.ClickCount, 10),
		link.CreatedAt.UTC().Format(time.RFC3339),
	}
}

var linkExportHeader = []string{
	"uuid",
	"short_code",
	"custom_slug",
	"original_url",
	"title",
	"is_active",
	"click_count",
	"created_at",
}

func (f *TransferFlowImpl) ExportLinksCSV(ctx context.Context, ownerID uint) (string, []byte, error) {
	rows, err := f.ownedLinks(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write(linkExportHeader); err != nil {
		return "", nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV header", err)
	}
	for _, link := range rows {
		if err := w.Write(linkExportRecord(link)); err != nil {
			return "", nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to flush CSV", err)
	}

	filename := fmt.Sprintf("links_%s.csv", time.Now().UTC().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// ExportLinksExcel builds a workbook with one links sheet and one clicks
// sheet holding the owner's raw click rows.
func (f *TransferFlowImpl) ExportLinksExcel(ctx context.Context, ownerID uint) (string, []byte, error) {
	rows, err := f.ownedLinks(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	linksSheet := "links"
	xl.SetSheetName(xl.GetSheetName(0), linksSheet)
	_ = xl.SetSheetRow(linksSheet, "A1", &linkExportHeader)
	for ri, link := range rows {
		record := linkExportRecord(link)
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(linksSheet, cellRef, &record)
	}

	clicksSheet := "clicks"
	_, _ = xl.NewSheet(clicksSheet)
	clicksHeader := []string{"short_code", "clicked_at", "country", "city", "device_type", "browser", "os", "referrer"}
	_ = xl.SetSheetRow(clicksSheet, "A1", &clicksHeader)

	ri := 0
	for _, link := range rows {
		clicks, err := f.clickRepo.ByFilter(ctx, models.ClickFilter{LinkID: &link.ID}, "clicked_at ASC", 0, 0)
		if err != nil {
			return "", nil, NewBusinessError("FETCH_CLICKS_FAILED", "Failed to fetch clicks", err)
		}
		for _, click := range clicks {
			record := []string{
				link.ShortCode,
				click.ClickedAt.UTC().Format(time.RFC3339),
				click.Country,
				click.City,
				click.DeviceType,
				click.Browser,
				click.OS,
				click.Referrer,
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(clicksSheet, cellRef, &record)
			ri++
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("links_%s.xlsx", time.Now().UTC().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// ImportLinksCSV reads rows of original_url[,custom_slug[,title]] and creates
// a link per row. Bad rows are skipped and reported, not fatal.
func (f *TransferFlowImpl) ImportLinksCSV(ctx context.Context, ownerID uint, r io.Reader) (*dto.ImportLinksResponse, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, NewBusinessError("CSV_READ_ERROR", "Failed to parse CSV", err)
	}
	if len(records) == 0 {
		return nil, ErrImportFileEmpty
	}

	// Skip a header row when the first cell is not a URL.
	start := 0
	if !strings.HasPrefix(strings.ToLower(records[0][0]), "http") {
		start = 1
	}
	if start >= len(records) {
		return nil, ErrImportFileEmpty
	}

	resp := &dto.ImportLinksResponse{}
	for i := start; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, ErrImportRowMalformed))
			continue
		}

		req := &dto.CreateLinkRequest{
			OwnerID:     &ownerID,
			OriginalURL: strings.TrimSpace(record[0]),
		}
		if len(record) > 1 && strings.TrimSpace(record[1]) != "" {
			// An invalid or taken slug is dropped, not fatal: the row still
			// imports under a generated code.
			slug := strings.TrimSpace(record[1])
			if f.importableSlug(ctx, slug) {
				req.CustomSlug = &slug
			}
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			title := strings.TrimSpace(record[2])
			req.Title = &title
		}

		if _, err := f.shorten.CreateLink(ctx, req); err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		resp.Imported++
	}

	resp.Message = fmt.Sprintf("Imported %d links, skipped %d", resp.Imported, resp.Skipped)
	return resp, nil
}

// importableSlug reports whether an imported slug can be claimed as-is.
func (f *TransferFlowImpl) importableSlug(ctx context.Context, slug string) bool {
	if ValidateSlug(slug) != nil {
		return false
	}
	taken, err := f.linkRepo.IsTaken(ctx, slug)
	return err == nil && !taken
}
