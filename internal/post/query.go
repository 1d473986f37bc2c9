package post

import "time"

const DefaultLimit = 20

// Filter holds the optional list predicates. All supplied predicates are
// ANDed; values are always bound parameters, never spliced into SQL text.
type Filter struct {
	Title        string
	Author       string
	CreatedAfter *time.Time
	Status       *Status
	Slugs        []string

	Limit  int
	Offset int

	// WithCount runs a second query over the same predicate. Off by
	// default so plain list calls never pay for a count.
	WithCount bool
}

type condition struct {
	expr string
	args []any
}

func (f Filter) conditions() []condition {
	var conds []condition
	if f.Title != "" {
		conds = append(conds, condition{
			expr: "title_search @@ plainto_tsquery('english', ?)",
			args: []any{f.Title},
		})
	}
	if f.Author != "" {
		conds = append(conds, condition{
			expr: "author_search @@ plainto_tsquery('english', ?)",
			args: []any{f.Author},
		})
	}
	if f.CreatedAfter != nil {
		conds = append(conds, condition{expr: "creation_time >= ?", args: []any{*f.CreatedAfter}})
	}
	if f.Status != nil {
		conds = append(conds, condition{expr: "status = ?", args: []any{*f.Status}})
	}
	if len(f.Slugs) > 0 {
		conds = append(conds, condition{expr: "slug IN ?", args: []any{f.Slugs}})
	}
	return conds
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

func (f Filter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
