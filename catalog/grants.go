package catalog

import (
	"context"
	"fmt"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
	"github.com/airbusgeo/landsat-acquirer/service"
	"github.com/airbusgeo/landsat-acquirer/service/log"
)

// Grants lists the download options of the entities and returns the ones accepted by the product policy
func (s *SceneSearcher) Grants(ctx context.Context, alias string, entityIDs []string) ([]common.DownloadGrant, error) {
	entityIDs = service.Unique(entityIDs)
	if len(entityIDs) == 0 {
		return nil, nil
	}
	options, err := s.Client.DownloadOptions(ctx, m2m.DownloadOptionsRequest{
		DatasetName:                alias,
		EntityIDs:                  entityIDs,
		IncludeSecondaryFileGroups: false,
	})
	if err != nil {
		return nil, fmt.Errorf("Grants.%w", err)
	}

	policy := s.productPolicy()
	var grants []common.DownloadGrant
	seen := service.StringSet{}
	for _, o := range options {
		if !policy.AcceptProduct(o) {
			continue
		}
		key := o.EntityID + "/" + o.ID
		if seen.Exists(key) {
			continue
		}
		seen.Push(key)
		grants = append(grants, common.DownloadGrant{EntityID: o.EntityID, ProductID: o.ID})
	}
	log.Logger(ctx).Sugar().Infof("%s: %d products granted out of %d options", alias, len(grants), len(options))
	return grants, nil
}

// RequestDownloads submits the grants under label and returns the urls of the downloads available right away
func (s *SceneSearcher) RequestDownloads(ctx context.Context, grants []common.DownloadGrant, label string) ([]string, error) {
	if len(grants) == 0 {
		return nil, nil
	}
	res, err := s.Client.DownloadRequest(ctx, m2m.DownloadRequestRequest{Downloads: grants, Label: label})
	if err != nil {
		return nil, fmt.Errorf("RequestDownloads.%w", err)
	}
	urls := make([]string, 0, len(res.AvailableDownloads))
	for _, d := range res.AvailableDownloads {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	if len(res.PreparingDownloads) > 0 || len(res.FailedDownloads) > 0 {
		log.Logger(ctx).Sugar().Warnf("%s: %d downloads preparing, %d failed", label, len(res.PreparingDownloads), len(res.FailedDownloads))
	}
	log.Logger(ctx).Sugar().Infof("%s: %d downloads available", label, len(urls))
	return urls, nil
}
