// Package lakefs lists and looks up objects on a lakeFS branch through the
// lakeFS S3 gateway, where the repository is the bucket and every key is
// prefixed with the branch name.
package lakefs

import (
	"context"
	"net/http"
	"strings"

	"github.com/gigapi/compactor/config"
	"github.com/gigapi/compactor/model"
	"github.com/gigapi/compactor/status"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const gatewayRegion = "us-east-1"

// Lister is what the compactor needs from the object store.
type Lister interface {
	List(ctx context.Context, repo, branch string, opts ListOptions) ([]model.ObjectItem, error)
	GetByName(ctx context.Context, repo, branch, name string) (model.ObjectItem, error)
}

type ListOptions struct {
	// Amount caps the number of returned objects
	Amount int
	// After is a branch-relative path; only objects sorting after it are returned
	After string
}

type Client struct {
	s3     *minio.Client
	filter *Filter
	log    *zap.Logger
}

var _ Lister = (*Client)(nil)

func New(cfg config.LakeFSConfiguration, filter *Filter, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	endpoint, secure := cfg.S3Endpoint()
	if endpoint == "" {
		return nil, status.Init("lakefs endpoint is required", nil)
	}
	s3, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: gatewayRegion,
	})
	if err != nil {
		return nil, status.Init("failed to create lakefs client", err)
	}
	return &Client{s3: s3, filter: filter, log: log}, nil
}

// List returns up to opts.Amount objects of repo/branch in key order.
// Objects rejected by the filter do not count against the amount.
func (c *Client) List(ctx context.Context, repo, branch string, opts ListOptions) ([]model.ObjectItem, error) {
	if opts.Amount <= 0 {
		return nil, nil
	}
	// cancelling stops the listing goroutine once we have enough
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := branchPrefix(branch)
	listOpts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   opts.Amount,
	}
	if opts.After != "" {
		listOpts.StartAfter = prefix + opts.After
	}

	res := make([]model.ObjectItem, 0, opts.Amount)
	for obj := range c.s3.ListObjects(ctx, repo, listOpts) {
		if obj.Err != nil {
			return nil, status.Lakefs("list "+repo+"/"+prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		item := toItem(prefix, obj)
		ok, err := c.filter.Match(item)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res = append(res, item)
		if len(res) == opts.Amount {
			break
		}
	}
	c.log.Debug("listed objects",
		zap.String("repo", repo),
		zap.String("branch", branch),
		zap.String("after", opts.After),
		zap.Int("amount", opts.Amount),
		zap.Int("got", len(res)))
	return res, nil
}

// GetByName looks up a single branch-relative path.
func (c *Client) GetByName(ctx context.Context, repo, branch, name string) (model.ObjectItem, error) {
	prefix := branchPrefix(branch)
	obj, err := c.s3.StatObject(ctx, repo, prefix+name, minio.StatObjectOptions{})
	if err != nil {
		return model.ObjectItem{}, classifyError(repo+"/"+prefix+name, err)
	}
	return toItem(prefix, obj), nil
}

func branchPrefix(branch string) string {
	return strings.TrimSuffix(branch, "/") + "/"
}

func toItem(prefix string, obj minio.ObjectInfo) model.ObjectItem {
	return model.ObjectItem{
		Path:        strings.TrimPrefix(obj.Key, prefix),
		Checksum:    strings.Trim(obj.ETag, `"`),
		SizeBytes:   obj.Size,
		Mtime:       obj.LastModified,
		ContentType: obj.ContentType,
	}
}

func classifyError(what string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket":
		return status.NotFound(what, err)
	}
	return status.Lakefs(what, err)
}
