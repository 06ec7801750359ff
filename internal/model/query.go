package model

import "encoding/json"

// FilterType is the closed set of gallery filter kinds carried as loose
// integers on the wire. Unknown values parse to FilterUnrecognized.
type FilterType int

const (
	FilterUnrecognized     FilterType = -1
	FilterTag              FilterType = 1
	FilterExtensionID      FilterType = 4
	FilterCategory         FilterType = 5
	FilterExtensionName    FilterType = 7
	FilterTarget           FilterType = 8
	FilterFeatured         FilterType = 9
	FilterSearchText       FilterType = 10
	FilterExcludeWithFlags FilterType = 12
)

func ParseFilterType(v int) FilterType {
	switch ft := FilterType(v); ft {
	case FilterTag, FilterExtensionID, FilterCategory, FilterExtensionName,
		FilterTarget, FilterFeatured, FilterSearchText, FilterExcludeWithFlags:
		return ft
	default:
		return FilterUnrecognized
	}
}

type SortBy int

const (
	SortByUnrecognized    SortBy = -1
	SortByNoneOrRelevance SortBy = 0
	SortByLastUpdatedDate SortBy = 1
	SortByTitle           SortBy = 2
	SortByPublisherName   SortBy = 3
	SortByInstallCount    SortBy = 4
	SortByPublishedDate   SortBy = 5
	SortByAverageRating   SortBy = 6
	SortByWeightedRating  SortBy = 12
)

func ParseSortBy(v int) SortBy {
	switch sb := SortBy(v); sb {
	case SortByNoneOrRelevance, SortByLastUpdatedDate, SortByTitle,
		SortByPublisherName, SortByInstallCount, SortByPublishedDate,
		SortByAverageRating, SortByWeightedRating:
		return sb
	default:
		return SortByUnrecognized
	}
}

type SortOrder int

const (
	SortOrderDefault    SortOrder = 0
	SortOrderAscending  SortOrder = 1
	SortOrderDescending SortOrder = 2
)

func ParseSortOrder(v int) SortOrder {
	switch so := SortOrder(v); so {
	case SortOrderAscending, SortOrderDescending:
		return so
	default:
		return SortOrderDefault
	}
}

// QueryFlags shape what the gallery includes in a query result.
type QueryFlags int

const (
	FlagIncludeVersions            QueryFlags = 0x1
	FlagIncludeFiles               QueryFlags = 0x2
	FlagIncludeCategoryAndTags     QueryFlags = 0x4
	FlagIncludeSharedAccounts      QueryFlags = 0x8
	FlagIncludeVersionProperties   QueryFlags = 0x10
	FlagExcludeNonValidated        QueryFlags = 0x20
	FlagIncludeInstallationTargets QueryFlags = 0x40
	FlagIncludeAssetURI            QueryFlags = 0x80
	FlagIncludeStatistics          QueryFlags = 0x100
	FlagIncludeLatestVersionOnly   QueryFlags = 0x200
	FlagUnpublished                QueryFlags = 0x1000
)

const (
	DefaultQueryFlags = FlagIncludeFiles | FlagIncludeVersionProperties |
		FlagIncludeAssetURI | FlagIncludeStatistics | FlagIncludeLatestVersionOnly

	// ReleaseQueryFlags additionally pulls the full version history so a
	// stable release can be picked out of prerelease-heavy extensions.
	ReleaseQueryFlags = FlagIncludeFiles | FlagIncludeVersionProperties |
		FlagIncludeAssetURI | FlagIncludeStatistics | FlagIncludeVersions
)

// TargetProduct is injected ahead of every outbound marketplace query.
const TargetProduct = "Microsoft.VisualStudio.Code"

type Criterion struct {
	FilterType int    `json:"filterType"`
	Value      string `json:"value"`
}

type QueryFilter struct {
	Criteria   []Criterion `json:"criteria"`
	PageNumber int         `json:"pageNumber,omitempty"`
	PageSize   int         `json:"pageSize,omitempty"`
	SortBy     int         `json:"sortBy"`
	SortOrder  int         `json:"sortOrder"`
}

// ExtensionQuery is the body of POST /_apis/public/gallery/extensionquery.
// Flags arrive as either a string or an int upstream, so the raw message
// is kept; only its presence matters to the offline server.
type ExtensionQuery struct {
	Filters    []QueryFilter   `json:"filters"`
	AssetTypes []string        `json:"assetTypes"`
	Flags      json.RawMessage `json:"flags"`
}

type QueryResultMetadataItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type QueryResultMetadata struct {
	MetadataType  string                    `json:"metadataType"`
	MetadataItems []QueryResultMetadataItem `json:"metadataItems"`
}

type QueryResult struct {
	Extensions     []*Extension          `json:"extensions"`
	PagingToken    *string               `json:"pagingToken"`
	ResultMetadata []QueryResultMetadata `json:"resultMetadata"`
}

// QueryResponse is the gallery envelope, served verbatim to clients and
// parsed from the upstream marketplace during sync.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
}

const ResultCountMetadata = "ResultCount"

// TotalCount digs the reported result total out of a page's metadata.
func (r QueryResult) TotalCount() (int, bool) {
	for _, md := range r.ResultMetadata {
		if md.MetadataType != ResultCountMetadata {
			continue
		}
		for _, item := range md.MetadataItems {
			if item.Name == "TotalCount" {
				return item.Count, true
			}
		}
		if len(md.MetadataItems) > 0 {
			return md.MetadataItems[0].Count, true
		}
	}
	return 0, false
}
