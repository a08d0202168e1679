package googlebooks

const (
	OrderRelevance = "relevance"
	OrderNewest    = "newest"

	PrintTypeAll       = "all"
	PrintTypeBooks     = "books"
	PrintTypeMagazines = "magazines"

	FilterEbooks     = "ebooks"
	FilterFreeEbooks = "free-ebooks"
	FilterPaidEbooks = "paid-ebooks"
	FilterFull       = "full"
	FilterPartial    = "partial"
)

// QueryOptions are the optional volumes query parameters.
type QueryOptions struct {
	OrderBy      string `yaml:"orderBy,omitempty"`
	Filter       string `yaml:"filter,omitempty"`
	LangRestrict string `yaml:"langRestrict,omitempty"`
	PrintType    string `yaml:"printType,omitempty"`
	StartIndex   int    `yaml:"startIndex,omitempty"`
}

// volumesResponse matches GET /books/v1/volumes
type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Volume matches a volume resource. Every field may be absent.
type Volume struct {
	ID         string      `json:"id"`
	VolumeInfo *VolumeInfo `json:"volumeInfo,omitempty"`
}

type VolumeInfo struct {
	Title         string      `json:"title,omitempty"`
	Authors       []string    `json:"authors,omitempty"`
	PublishedDate string      `json:"publishedDate,omitempty"`
	Categories    []string    `json:"categories,omitempty"`
	ImageLinks    *ImageLinks `json:"imageLinks,omitempty"`
	Description   string      `json:"description,omitempty"`
	PageCount     *int        `json:"pageCount,omitempty"`
	Publisher     string      `json:"publisher,omitempty"`
	PreviewLink   string      `json:"previewLink,omitempty"`
}

type ImageLinks struct {
	Thumbnail      string `json:"thumbnail,omitempty"`
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
}
