package services

import (
	"strings"

	"github.com/harmonix/backend/internal/models"
	"gorm.io/gorm"
)

const (
	SortNewest          = "newest"
	SortOldest          = "oldest"
	SortMostInstruments = "most_instruments"
)

type FeedRequest struct {
	Search     string `form:"search" json:"search"`
	Genre      string `form:"genre" json:"genre"`
	Instrument string `form:"instrument" json:"instrument"`
	Location   string `form:"location" json:"location"`
	Sort       string `form:"sort" json:"sort"`
	Page       int    `form:"page" json:"page"`
}

type FeedItem struct {
	models.Listing
	PostedDisplay    string   `json:"posted_display"`
	InstrumentLabels []string `json:"instrument_labels"`
	GenreLabels      []string `json:"genre_labels"`
	ApplicationCount int64    `json:"application_count"`
	HasApplied       bool     `json:"has_applied"`
	HasDraft         bool     `json:"has_draft"`
}

type FilterOptions struct {
	Genres      []models.Choice `json:"genres"`
	Instruments []models.Choice `json:"instruments"`
}

type FeedResponse struct {
	Items          []FeedItem      `json:"items"`
	Total          int64           `json:"total"`
	Page           int             `json:"page"`
	PageSize       int             `json:"page_size"`
	TotalPages     int             `json:"total_pages"`
	HasNext        bool            `json:"has_next"`
	HasPrevious    bool            `json:"has_previous"`
	SortOptions    []models.Choice `json:"sort_options"`
	FilterOptions  *FilterOptions  `json:"filter_options,omitempty"`
	CurrentFilters FeedRequest     `json:"current_filters"`
}

var (
	musicianSortOptions = []models.Choice{
		{Key: SortNewest, Label: "Newest first"},
		{Key: SortOldest, Label: "Oldest first"},
		{Key: SortMostInstruments, Label: "Most instruments needed"},
	}
	ownerSortOptions = musicianSortOptions[:2]
)

// Feed lists listings for the caller. Musicians browse active listings with
// filters; band admins see their own listings; admins see every listing.
func (s *ListingService) Feed(userID uint, role models.Role, req *FeedRequest) (*FeedResponse, error) {
	query := s.db.Model(&models.Listing{})
	resp := &FeedResponse{}

	switch role {
	case models.RoleMusician:
		query = applyFeedFilters(query.Where("is_active = ?", true), req)
		resp.SortOptions = musicianSortOptions
		opts, err := s.filterOptions()
		if err != nil {
			return nil, err
		}
		resp.FilterOptions = opts
	case models.RoleBand:
		query = query.Where("band_admin_id = ?", userID)
		resp.SortOptions = ownerSortOptions
		req.Search, req.Genre, req.Instrument, req.Location = "", "", "", ""
	case models.RoleAdmin:
		resp.SortOptions = ownerSortOptions
		req.Search, req.Genre, req.Instrument, req.Location = "", "", "", ""
	default:
		return nil, errUnknownRole
	}

	req.Sort = normalizeSort(req.Sort, role)
	switch req.Sort {
	case SortOldest:
		query = query.Order("created_at ASC").Order("id ASC")
	case SortMostInstruments:
		query = query.Order("instrument_count DESC").Order("created_at DESC").Order("id DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}

	pageSize := s.cfg.PageSize
	if pageSize < 1 {
		pageSize = 4
	}
	totalPages := int((resp.Total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	req.Page = page

	var listings []models.Listing
	if err := query.Preload("BandAdmin").Offset((page - 1) * pageSize).Limit(pageSize).Find(&listings).Error; err != nil {
		return nil, err
	}

	items, err := s.decorate(listings, userID, role)
	if err != nil {
		return nil, err
	}

	resp.Items = items
	resp.Page = page
	resp.PageSize = pageSize
	resp.TotalPages = totalPages
	resp.HasNext = page < totalPages
	resp.HasPrevious = page > 1
	resp.CurrentFilters = *req
	return resp, nil
}

func applyFeedFilters(query *gorm.DB, req *FeedRequest) *gorm.DB {
	req.Search = strings.TrimSpace(req.Search)
	req.Genre = strings.TrimSpace(req.Genre)
	req.Instrument = strings.TrimSpace(req.Instrument)
	req.Location = strings.TrimSpace(req.Location)

	if req.Search != "" {
		like := models.ContainsPattern(strings.ToLower(req.Search))
		query = query.Where("LOWER(title) LIKE ?"+models.LikeEscape+
			" OR LOWER(band_name) LIKE ?"+models.LikeEscape+
			" OR LOWER(description) LIKE ?"+models.LikeEscape, like, like, like)
	}
	if req.Genre != "" {
		query = query.Where("LOWER(genres) LIKE ?"+models.LikeEscape, models.ListElementPattern(models.Genres.Label(req.Genre)))
	}
	if req.Instrument != "" {
		query = query.Where("LOWER(instruments_needed) LIKE ?"+models.LikeEscape, models.ListElementPattern(models.Instruments.Label(req.Instrument)))
	}
	if req.Location != "" {
		query = query.Where("LOWER(location) LIKE ?"+models.LikeEscape, models.ContainsPattern(strings.ToLower(req.Location)))
	}
	return query
}

func normalizeSort(sort string, role models.Role) string {
	switch sort {
	case SortOldest:
		return SortOldest
	case SortMostInstruments:
		if role.IsMusician() {
			return SortMostInstruments
		}
	}
	return SortNewest
}

// filterOptions lists the catalog entries in use on active listings.
func (s *ListingService) filterOptions() (*FilterOptions, error) {
	var rows []models.Listing
	if err := s.db.Select("genres", "instruments_needed").Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	genres := make([][]string, 0, len(rows))
	instruments := make([][]string, 0, len(rows))
	for _, r := range rows {
		genres = append(genres, r.Genres)
		instruments = append(instruments, r.InstrumentsNeeded)
	}
	return &FilterOptions{
		Genres:      models.Genres.Used(genres...),
		Instruments: models.Instruments.Used(instruments...),
	}, nil
}

// decorate adds the derived per-listing counts and the caller's own
// application state.
func (s *ListingService) decorate(listings []models.Listing, userID uint, role models.Role) ([]FeedItem, error) {
	items := make([]FeedItem, 0, len(listings))
	if len(listings) == 0 {
		return items, nil
	}

	ids := make([]uint, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}

	var counts []struct {
		ListingID uint
		Count     int64
	}
	if err := s.db.Model(&models.Application{}).
		Select("listing_id, COUNT(*) AS count").
		Where("listing_id IN ? AND status <> ?", ids, models.ApplicationDraft).
		Group("listing_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	countByListing := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByListing[c.ListingID] = c.Count
	}

	mine := make(map[uint]models.ApplicationStatus)
	if role.IsMusician() {
		var apps []models.Application
		if err := s.db.Select("listing_id", "status").
			Where("musician_id = ? AND listing_id IN ?", userID, ids).
			Find(&apps).Error; err != nil {
			return nil, err
		}
		for _, a := range apps {
			mine[a.ListingID] = a.Status
		}
	}

	for _, l := range listings {
		status, ok := mine[l.ID]
		items = append(items, FeedItem{
			Listing:          l,
			PostedDisplay:    l.PostedDisplay(),
			InstrumentLabels: l.InstrumentLabels(),
			GenreLabels:      l.GenreLabels(),
			ApplicationCount: countByListing[l.ID],
			HasApplied:       ok && status.Submitted(),
			HasDraft:         ok && status == models.ApplicationDraft,
		})
	}
	return items, nil
}
