package catalog

import (
	"strings"

	"github.com/airbusgeo/landsat-acquirer/common"
)

const (
	// DefaultDatasetAlias is the Landsat 8-9 OLI/TIRS collection 2 level-1 dataset
	DefaultDatasetAlias = "landsat_ot_c2_l1"
	// DefaultProductPattern selects the full resolution browse image
	DefaultProductPattern = "Full Resolution Browse (Reflective Color) JPEG"
)

// DefaultExcludedTokens are matched against the download name of the options.
// The fetcher applies the same tokens to the name of the downloaded file.
var DefaultExcludedTokens = common.ExcludedTokens

// DatasetPolicy selects the datasets to search scenes in
type DatasetPolicy interface {
	AcceptDataset(d common.DatasetDescriptor) bool
}

// ProductPolicy selects the download options to request
type ProductPolicy interface {
	AcceptProduct(o common.DownloadOption) bool
}

// AliasPolicy accepts the dataset whose alias is Alias
type AliasPolicy struct {
	Alias string
}

func (p AliasPolicy) AcceptDataset(d common.DatasetDescriptor) bool {
	return d.Alias == p.Alias
}

// DatasetPolicyFunc is a function implementing DatasetPolicy
type DatasetPolicyFunc func(d common.DatasetDescriptor) bool

func (f DatasetPolicyFunc) AcceptDataset(d common.DatasetDescriptor) bool { return f(d) }

// ProductNamePolicy accepts the available products whose download name contains Pattern
// and none of the Exclude tokens
type ProductNamePolicy struct {
	Pattern string
	Exclude []string
}

func (p ProductNamePolicy) AcceptProduct(o common.DownloadOption) bool {
	if !o.Available || !strings.Contains(o.DownloadName, p.Pattern) {
		return false
	}
	return !common.HasExcludedToken(o.DownloadName, p.Exclude)
}

// ProductPolicyFunc is a function implementing ProductPolicy
type ProductPolicyFunc func(o common.DownloadOption) bool

func (f ProductPolicyFunc) AcceptProduct(o common.DownloadOption) bool { return f(o) }

func DefaultDatasetPolicy() DatasetPolicy {
	return AliasPolicy{Alias: DefaultDatasetAlias}
}

func DefaultProductPolicy() ProductPolicy {
	return ProductNamePolicy{Pattern: DefaultProductPattern, Exclude: DefaultExcludedTokens}
}
