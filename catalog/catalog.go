package catalog

import (
	"context"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
)

// Client is the subset of the catalog service used by the resolver and the searcher.
// It is implemented by *m2m.Client.
type Client interface {
	Grid2LL(ctx context.Context, ref common.GridRef) (m2m.Grid2LLResponse, error)
	DatasetSearch(ctx context.Context, req m2m.DatasetSearchRequest) ([]common.DatasetDescriptor, error)
	SceneSearch(ctx context.Context, req m2m.SceneSearchRequest) (common.SceneSearchResult, error)
	DownloadOptions(ctx context.Context, req m2m.DownloadOptionsRequest) ([]common.DownloadOption, error)
	DownloadRequest(ctx context.Context, req m2m.DownloadRequestRequest) (m2m.DownloadRequestResponse, error)
}

var _ Client = (*m2m.Client)(nil)
