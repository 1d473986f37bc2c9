package post

type CreateReq struct {
	Title      string   `json:"title" validate:"required"`
	Author     string   `json:"author" validate:"required"`
	Body       string   `json:"body" validate:"required"`
	Subheading string   `json:"subheading"`
	HeroImage  string   `json:"hero_image"`
	Status     string   `json:"status"`
	Tags       []string `json:"tags"`
}

// PatchReq carries only the fields the client supplied; nil means
// "leave as is". A nil Tags keeps the current tag set, an empty non-nil
// list clears it.
type PatchReq struct {
	Title      *string   `json:"title"`
	Author     *string   `json:"author"`
	Body       *string   `json:"body"`
	Subheading *string   `json:"subheading"`
	HeroImage  *string   `json:"hero_image"`
	Status     *string   `json:"status"`
	Tags       *[]string `json:"tags"`
}

type ListResp struct {
	Posts  []Post `json:"posts"`
	Count  *int64 `json:"count,omitempty"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
