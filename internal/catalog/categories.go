package catalog

import "strings"

// CategoryOption is a flattened category tree entry for keyboard rendering.
type CategoryOption struct {
	ID    int64
	Label string
}

// FlattenCategories walks the category tree depth-first and produces
// display labels indented by nesting depth.
func FlattenCategories(cats []Category) []CategoryOption {
	var out []CategoryOption
	var walk func(cats []Category, depth int)
	walk = func(cats []Category, depth int) {
		for _, c := range cats {
			label := c.Name
			if depth > 0 {
				label = strings.Repeat("— ", depth) + c.Name
			}
			out = append(out, CategoryOption{ID: c.ID, Label: label})
			if len(c.Subcategories) > 0 {
				walk(c.Subcategories, depth+1)
			}
		}
	}
	walk(cats, 0)
	return out
}
