package es

// Record is one mapped hit: the document id, its source fields, and any
// highlights, plus the raw hit for callers that need cursors or scores.
type Record struct {
	ID         string              `json:"_id"`
	Fields     map[string]any      `json:"fields"`
	Highlights map[string][]string `json:"highlights,omitempty"`
	Raw        Hit                 `json:"-"`
}

// Page is one mapped result page with pagination metadata.
type Page struct {
	Data         []Record       `json:"data"`
	Total        int64          `json:"total"`
	PerPage      int            `json:"per_page"`
	CurrentPage  int            `json:"current_page"`
	LastPage     int            `json:"last_page"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
}

// MapPage converts a raw engine response into a Page for the given
// pagination window.
func MapPage(resp *Response, page, perPage int) Page {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	records := make([]Record, len(resp.Hits))
	for i, h := range resp.Hits {
		records[i] = Record{
			ID:         h.ID,
			Fields:     h.Source,
			Highlights: h.Highlights,
			Raw:        h,
		}
	}

	lastPage := int((resp.Total + int64(perPage) - 1) / int64(perPage))
	return Page{
		Data:         records,
		Total:        resp.Total,
		PerPage:      perPage,
		CurrentPage:  page,
		LastPage:     lastPage,
		Aggregations: resp.Aggregations,
	}
}
