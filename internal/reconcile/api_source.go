package reconcile

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"franchise_crm/platform/apperr"

	"github.com/go-resty/resty/v2"
)

const msgPartnerAPIUnavailable = "partner api unavailable"

// apiRecord is the partner API's wire shape. Older payloads carry the id as
// talep_id.
type apiRecord struct {
	ID                 int64      `json:"id"`
	TalepID            int64      `json:"talep_id"`
	CustomerName       string     `json:"customer_name"`
	CustomerPhone      string     `json:"customer_phone"`
	CustomerEmail      string     `json:"customer_email"`
	City               string     `json:"il"`
	District           string     `json:"ilce"`
	Neighborhood       string     `json:"mahalle"`
	Street             string     `json:"sokak"`
	DoorNo             string     `json:"kapi_no"`
	BlockNo            string     `json:"ada"`
	ParcelNo           string     `json:"parsel"`
	BuildingArea       *float64   `json:"bina_alani"`
	UnitCount          *int       `json:"bagimsiz_bolum_sayisi"`
	TransformationType string     `json:"donusum_tipi"`
	ReviewStatus       string     `json:"inceleme_durumu"`
	CreatedAt          *time.Time `json:"created_at"`
}

func (r apiRecord) toRecord() ExternalRecord {
	id := r.ID
	if id == 0 {
		id = r.TalepID
	}
	return ExternalRecord{
		ExternalID:         id,
		CustomerName:       r.CustomerName,
		CustomerPhone:      r.CustomerPhone,
		CustomerEmail:      r.CustomerEmail,
		City:               r.City,
		District:           r.District,
		Neighborhood:       r.Neighborhood,
		Street:             r.Street,
		DoorNo:             r.DoorNo,
		BlockNo:            r.BlockNo,
		ParcelNo:           r.ParcelNo,
		BuildingArea:       r.BuildingArea,
		UnitCount:          r.UnitCount,
		TransformationType: r.TransformationType,
		ReviewStatus:       r.ReviewStatus,
		CreatedAt:          r.CreatedAt,
	}
}

type listEnvelope struct {
	OK       bool        `json:"ok"`
	Talepler []apiRecord `json:"talepler"`
}

type itemEnvelope struct {
	OK    bool       `json:"ok"`
	Talep *apiRecord `json:"talep"`
}

// APISource reads partner records over HTTP.
type APISource struct {
	client *resty.Client
}

// NewAPISource creates a client bound to baseURL with the X-API-Key header set.
func NewAPISource(baseURL, apiKey string, timeout time.Duration) *APISource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("X-API-Key", apiKey).
		SetHeader("Accept", "application/json")
	return &APISource{client: client}
}

func (s *APISource) Name() string { return SourceModeAPI }

func (s *APISource) FetchSince(ctx context.Context, cursor int64) ([]ExternalRecord, error) {
	var envelope listEnvelope
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("since_id", strconv.FormatInt(cursor, 10)).
		SetResult(&envelope).
		Get("/crm/talepler")
	if err != nil {
		return nil, apperr.Unavailable(msgPartnerAPIUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK || !envelope.OK {
		return nil, apperr.Unavailable(msgPartnerAPIUnavailable, nil).
			WithDetails(map[string]any{"status": resp.StatusCode()})
	}

	records := make([]ExternalRecord, 0, len(envelope.Talepler))
	for _, item := range envelope.Talepler {
		rec := item.toRecord()
		if rec.ExternalID > cursor {
			records = append(records, rec)
		}
	}
	slices.SortFunc(records, func(a, b ExternalRecord) int {
		switch {
		case a.ExternalID < b.ExternalID:
			return -1
		case a.ExternalID > b.ExternalID:
			return 1
		}
		return 0
	})
	return records, nil
}

func (s *APISource) Fetch(ctx context.Context, externalID int64) (*ExternalRecord, error) {
	var envelope itemEnvelope
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(externalID, 10)).
		SetResult(&envelope).
		Get("/crm/talep/{id}")
	if err != nil {
		return nil, apperr.Unavailable(msgPartnerAPIUnavailable, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, apperr.Unavailable(msgPartnerAPIUnavailable, nil).
			WithDetails(map[string]any{"status": resp.StatusCode()})
	}

	if !envelope.OK || envelope.Talep == nil {
		return nil, nil
	}
	rec := envelope.Talep.toRecord()
	if rec.ExternalID == 0 {
		rec.ExternalID = externalID
	}
	return &rec, nil
}
