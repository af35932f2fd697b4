package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"franchise_crm/platform/config"
)

const (
	SourceModeAPI = "api"
	SourceModeDB  = "db"
	SourceModeOff = "off"
)

// ErrSourceDisabled is returned by OpenSource when reconciliation is off.
var ErrSourceDisabled = errors.New("sync source disabled")

// Source reads partner records. FetchSince returns records with an id above
// cursor in ascending id order. Fetch returns nil, nil when the record does
// not exist upstream. Transport failures are apperr.Unavailable.
type Source interface {
	Name() string
	FetchSince(ctx context.Context, cursor int64) ([]ExternalRecord, error)
	Fetch(ctx context.Context, externalID int64) (*ExternalRecord, error)
}

// OpenSource builds the source selected by configuration. The returned close
// function releases the source's connections.
func OpenSource(cfg config.SyncConfig) (Source, func() error, error) {
	switch strings.ToLower(cfg.GetSyncSourceMode()) {
	case SourceModeDB:
		src, err := OpenDBSource(cfg.GetSyncSourceDatabaseURL(), cfg.GetSyncFetchTimeout())
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case SourceModeOff:
		return nil, nil, ErrSourceDisabled
	case SourceModeAPI, "":
		src := NewAPISource(cfg.GetSyncAPIBaseURL(), cfg.GetSyncAPIKey(), cfg.GetSyncFetchTimeout())
		return src, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown sync source mode %q", cfg.GetSyncSourceMode())
	}
}
