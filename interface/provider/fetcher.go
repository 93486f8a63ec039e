package provider

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"github.com/cavaliercoder/grab"
	"github.com/google/uuid"
)

var filenameRe = regexp.MustCompile(`filename\*?=([^;]+)`)

// FilenameFromContentDisposition extracts the file name of a content-disposition header.
// The name is reduced to its last path element.
func FilenameFromContentDisposition(cd string) (string, error) {
	var name string
	if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
		name = params["filename"]
	} else if m := filenameRe.FindStringSubmatch(cd); m != nil {
		name = strings.Trim(strings.TrimSpace(m[1]), `"'`)
	}
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("no file name in content-disposition: %q", cd)
	}
	return name, nil
}

const maxNameCollisions = 1000

// reserve creates an empty file named after name in dir, or <stem>_<n><ext> if the name is taken,
// so that concurrent fetches never overwrite each other.
func reserve(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 0; n < maxNameCollisions; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return path, f.Close()
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("reserve: too many files named %s", name)
}

// HTTPFetcher streams assets to the destination directory of the task.
// The file is named after the content-disposition header of the response.
// Files whose name contains one of the Exclude tokens are rejected before the transfer.
type HTTPFetcher struct {
	Client  *grab.Client
	Exclude []string
}

// NewHTTPFetcher creates a fetcher using hc (http.DefaultClient if nil), excluding common.ExcludedTokens
func NewHTTPFetcher(hc *http.Client) *HTTPFetcher {
	client := grab.NewClient()
	if hc != nil {
		client.HTTPClient = hc
	}
	client.UserAgent = "landsat-acquirer"
	return &HTTPFetcher{Client: client, Exclude: common.ExcludedTokens}
}

// Fetch downloads task.URL into task.DestDir and returns the path of the file.
// The transfer goes through a staging directory that is removed afterwards.
// An existing file is never overwritten: the name gets a numeric suffix instead.
func (f *HTTPFetcher) Fetch(ctx context.Context, task common.FetchTask) (string, error) {
	if err := os.MkdirAll(task.DestDir, 0755); err != nil {
		return "", &FetchError{URL: task.URL, Err: err}
	}
	staging := filepath.Join(task.DestDir, ".staging-"+uuid.New().String())
	if err := os.Mkdir(staging, 0755); err != nil {
		return "", &FetchError{URL: task.URL, Err: err}
	}
	defer os.RemoveAll(staging)

	req, err := grab.NewRequest(filepath.Join(staging, "asset"), task.URL)
	if err != nil {
		return "", &FetchError{URL: task.URL, Err: err}
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	var filename string
	req.BeforeCopy = func(resp *grab.Response) error {
		cd := resp.HTTPResponse.Header.Get("Content-Disposition")
		if cd == "" {
			return ErrMissingContentDisposition
		}
		name, cerr := FilenameFromContentDisposition(cd)
		if cerr != nil {
			return cerr
		}
		if common.HasExcludedToken(name, f.Exclude) {
			return fmt.Errorf("%s: %w", name, ErrExcludedFile)
		}
		filename = name
		return nil
	}

	prefix := task.URL
	if task.DownloadID != "" {
		prefix = task.DownloadID
	}
	resp, err := download(ctx, f.Client, req, prefix)
	if err != nil {
		return "", fmt.Errorf("Fetch.%w", err)
	}

	dst, err := reserve(task.DestDir, filename)
	if err != nil {
		return "", &FetchError{URL: task.URL, Err: err}
	}
	if err := os.Rename(resp.Filename, dst); err != nil {
		os.Remove(dst)
		return "", &FetchError{URL: task.URL, Err: err}
	}
	log.Logger(ctx).Sugar().Infof("%s: %s downloaded (%s)", prefix, filename, fmtBytes(resp.BytesComplete()))
	return dst, nil
}
