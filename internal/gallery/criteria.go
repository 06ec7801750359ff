package gallery

import (
	"sort"
	"strings"
	"time"

	"github.com/vscoffline/mirror-backend/internal/model"
	"go.uber.org/zap"
)

// recommendedFallbackMax is the criteria-count bound of the upstream
// "no meaningful filter supplied" heuristic. It is a literal contract,
// reproduced as observed.
const recommendedFallbackMax = 2

// ApplyCriteria filters the live snapshot. Criteria are applied in order
// and matches accumulate; value comparison is case-insensitive.
func (c *Catalog) ApplyCriteria(criteria []model.Criterion) []*model.Extension {
	snap := c.Snapshot()
	var result []*model.Extension

	for _, crit := range criteria {
		ft := model.ParseFilterType(crit.FilterType)
		val := strings.ToLower(crit.Value)

		switch ft {
		case model.FilterExtensionID:
			for _, ext := range snap.Extensions {
				if val == strings.ToLower(ext.ExtensionID) {
					result = append(result, ext)
				}
			}

		case model.FilterExtensionName:
			for _, ext := range snap.Extensions {
				if strings.ToLower(ext.Identity) == val {
					result = append(result, ext)
				}
			}

		case model.FilterSearchText:
			for _, ext := range snap.Extensions {
				if strings.Contains(strings.ToLower(ext.Identity), val) ||
					strings.Contains(strings.ToLower(ext.DisplayName), val) ||
					strings.Contains(strings.ToLower(ext.ShortDescription), val) {
					result = append(result, ext)
				}
			}

		case model.FilterTag, model.FilterCategory, model.FilterFeatured:
			c.logger.Info("not implemented filter type",
				zap.Int("filterType", crit.FilterType),
				zap.String("value", crit.Value),
			)

		case model.FilterTarget, model.FilterExcludeWithFlags:
			// The offline server does not enforce product targeting or
			// unpublished-flag exclusion.

		default:
			c.logger.Warn("undefined filter type",
				zap.Int("filterType", crit.FilterType),
				zap.String("value", crit.Value),
			)
		}
	}

	// No hits from a near-empty query: surface the recommended set, the
	// offline stand-in for upstream popularity.
	if len(result) == 0 && len(criteria) <= recommendedFallbackMax {
		for _, ext := range snap.Extensions {
			if ext.Recommended {
				result = append(result, ext)
			}
		}
	}

	return result
}

// SortResults orders result in place. The baseline direction is
// descending unless Ascending is requested; the publisher-name and
// display-name keys flip that baseline. The sort is stable so ties keep
// their input order.
func (c *Catalog) SortResults(result []*model.Extension, sortBy model.SortBy, sortOrder model.SortOrder) {
	desc := sortOrder != model.SortOrderAscending

	var less func(a, b *model.Extension) bool
	switch sortBy {
	case model.SortByPublisherName:
		desc = !desc
		less = func(a, b *model.Extension) bool {
			return a.Publisher.PublisherName < b.Publisher.PublisherName
		}
	case model.SortByInstallCount:
		less = func(a, b *model.Extension) bool {
			return a.Stats.Install() < b.Stats.Install()
		}
	case model.SortByAverageRating:
		less = func(a, b *model.Extension) bool {
			return a.Stats.AverageRating() < b.Stats.AverageRating()
		}
	case model.SortByWeightedRating:
		less = func(a, b *model.Extension) bool {
			return a.Stats.WeightedRating() < b.Stats.WeightedRating()
		}
	case model.SortByLastUpdatedDate:
		less = func(a, b *model.Extension) bool {
			return galleryTime(a.LastUpdated).Before(galleryTime(b.LastUpdated))
		}
	case model.SortByPublishedDate:
		less = func(a, b *model.Extension) bool {
			return galleryTime(a.PublishedDate).Before(galleryTime(b.PublishedDate))
		}
	default:
		desc = !desc
		less = func(a, b *model.Extension) bool {
			return a.DisplayName < b.DisplayName
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if desc {
			return less(result[j], result[i])
		}
		return less(result[i], result[j])
	})
}

func galleryTime(s string) time.Time {
	t, err := model.ParseGalleryTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BuildResponse wraps an ordered result list in the gallery envelope.
func BuildResponse(result []*model.Extension) *model.QueryResponse {
	if result == nil {
		result = []*model.Extension{}
	}
	return &model.QueryResponse{
		Results: []model.QueryResult{
			{
				Extensions:  result,
				PagingToken: nil,
				ResultMetadata: []model.QueryResultMetadata{
					{
						MetadataType: model.ResultCountMetadata,
						MetadataItems: []model.QueryResultMetadataItem{
							{Name: "TotalCount", Count: len(result)},
						},
					},
				},
			},
		},
	}
}
