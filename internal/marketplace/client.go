package marketplace

import (
	"context"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/vscoffline/mirror-backend/internal/pkg/fetch"
	"go.uber.org/zap"
)

const defaultPageSize = 500

// Client talks to the upstream extension registry. It is used only by
// the sync process; the serving catalog never goes upstream.
type Client struct {
	fetch      *fetch.Client
	upstream   config.UpstreamConfig
	insider    bool
	prerelease bool
	version    string
	headers    map[string]string
	logger     *zap.Logger
}

func NewClient(fc *fetch.Client, upstream config.UpstreamConfig, insider, prerelease bool, version string, logger *zap.Logger) *Client {
	suffix := ""
	if insider {
		suffix = "-insider"
	}
	agent := "VSCode " + version + suffix

	return &Client{
		fetch:      fc,
		upstream:   upstream,
		insider:    insider,
		prerelease: prerelease,
		version:    version,
		headers: map[string]string{
			"accept":             "application/json;api-version=3.0-preview.1",
			"accept-encoding":    "gzip, deflate, br",
			"User-Agent":         agent,
			"x-market-client-Id": agent,
			"x-market-user-Id":   uuid.NewString(),
		},
		logger: logger,
	}
}

type QueryOptions struct {
	PageNumber int
	PageSize   int
	Limit      int
	SortBy     model.SortBy
	SortOrder  model.SortOrder
	Flags      model.QueryFlags
}

func (c *Client) buildQuery(ft model.FilterType, value string, page, pageSize int, opts QueryOptions) any {
	flags := opts.Flags
	if flags == 0 {
		flags = model.DefaultQueryFlags
	}

	// The product-target and unpublished-exclusion criteria always go
	// ahead of the caller's own criterion.
	criteria := []model.Criterion{
		{FilterType: int(model.FilterTarget), Value: model.TargetProduct},
		{FilterType: int(model.FilterExcludeWithFlags), Value: "4096"},
	}
	if value != "" {
		criteria = append(criteria, model.Criterion{FilterType: int(ft), Value: value})
	}

	return struct {
		AssetTypes []string            `json:"assetTypes"`
		Filters    []model.QueryFilter `json:"filters"`
		Flags      int                 `json:"flags"`
	}{
		AssetTypes: []string{},
		Filters: []model.QueryFilter{
			{
				Criteria:   criteria,
				PageNumber: page,
				PageSize:   pageSize,
				SortBy:     int(opts.SortBy),
				SortOrder:  int(opts.SortOrder),
			},
		},
		Flags: int(flags),
	}
}

// Query pages through the marketplace until the reported total or the
// caller's limit is reached. Each page fetch gets the bounded retry
// policy; when a page exhausts its retries, the whole paged query is
// abandoned with whatever accumulated so far.
func (c *Client) Query(ctx context.Context, ft model.FilterType, value string, opts QueryOptions) []*model.Extension {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if opts.Limit > 0 && opts.Limit < pageSize {
		pageSize = opts.Limit
	}

	byIdentity := make(map[string]*model.Extension)
	var order []string
	page := opts.PageNumber
	total, count := 0, 0

	for count <= total {
		page++
		payload := c.buildQuery(ft, value, page, pageSize, opts)

		body, status, err := c.fetch.PostJSON(ctx, c.upstream.GalleryAPI, c.headers, payload)
		if err != nil {
			c.logger.Info("failed all attempts to query marketplace, giving up",
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		if status != http.StatusOK {
			c.logger.Info("marketplace query returned unexpected status, giving up",
				zap.Int("page", page),
				zap.Int("status", status),
			)
			break
		}

		var resp model.QueryResponse
		if err := sonic.Unmarshal(body, &resp); err != nil {
			c.logger.Info("failed parsing json from marketplace api query",
				zap.Error(err),
			)
			break
		}

		count += pageSize

		if len(resp.Results) == 0 {
			c.logger.Info("no results in marketplace return query")
			continue
		}

		for _, res := range resp.Results {
			for i := range res.Extensions {
				ext := res.Extensions[i]
				if err := ext.ResolveIdentity(); err != nil {
					c.logger.Debug("skipping extension record",
						zap.Error(err),
					)
					continue
				}
				if _, seen := byIdentity[ext.Identity]; !seen {
					order = append(order, ext.Identity)
				}
				byIdentity[ext.Identity] = ext
			}
			if t, ok := res.TotalCount(); ok {
				total = t
			}
		}

		if opts.Limit > 0 && count >= opts.Limit {
			break
		}
	}

	out := make([]*model.Extension, 0, len(order))
	for _, identity := range order {
		out = append(out, byIdentity[identity])
	}
	return out
}

// SearchByExtensionName resolves a single extension by its exact
// publisher.name identity. Zero or multiple hits mean the lookup was
// ambiguous and nothing is returned. Unless prerelease mode is on, the
// version list collapses to the latest stable release.
func (c *Client) SearchByExtensionName(ctx context.Context, name string) *model.Extension {
	var flags model.QueryFlags
	if !c.prerelease {
		flags = model.ReleaseQueryFlags
	}

	results := c.Query(ctx, model.FilterExtensionName, name, QueryOptions{Flags: flags})
	if len(results) != 1 {
		return nil
	}
	result := results[0]
	if !c.prerelease {
		result.Versions = result.LatestReleaseVersions()
	}
	return result
}

// SearchByText searches the marketplace; "*" means everything. Includes
// prereleases.
func (c *Client) SearchByText(ctx context.Context, text string) []*model.Extension {
	if text == "*" {
		text = ""
	}
	return c.Query(ctx, model.FilterSearchText, text, QueryOptions{})
}

// SearchTopN returns the n most installed extensions.
func (c *Client) SearchTopN(ctx context.Context, n int) []*model.Extension {
	c.logger.Info("searching for top recommended extensions",
		zap.Int("n", n),
	)
	return c.Query(ctx, model.FilterSearchText, "", QueryOptions{
		Limit:     n,
		SortBy:    model.SortByInstallCount,
		SortOrder: model.SortOrderDescending,
	})
}

// SearchReleaseByExtensionID looks up the stable release set for one
// extension id.
func (c *Client) SearchReleaseByExtensionID(ctx context.Context, extensionID string) *model.Extension {
	c.logger.Debug("searching for release candidate by extensionId",
		zap.String("extensionId", extensionID),
	)
	results := c.Query(ctx, model.FilterExtensionID, extensionID, QueryOptions{Flags: model.ReleaseQueryFlags})
	if len(results) != 1 {
		c.logger.Warn("release lookup by extension id failed",
			zap.String("extensionId", extensionID),
		)
		return nil
	}
	return results[0]
}

// GetRecommendations marks the top-n by install count as recommended.
// When prerelease mode is off, any prerelease hit is re-resolved to its
// latest stable version set.
func (c *Client) GetRecommendations(ctx context.Context, n int) []*model.Extension {
	recommendations := c.SearchTopN(ctx, n)

	for _, rec := range recommendations {
		rec.SetRecommended()
		if !c.prerelease && rec.IsPrerelease() {
			if release := c.SearchReleaseByExtensionID(ctx, rec.ExtensionID); release != nil {
				rec.Versions = release.LatestReleaseVersions()
			}
		}
	}
	return recommendations
}
