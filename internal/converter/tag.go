package converter

import "github.com/mark3labs/grape2openapi/internal/route"

// TagConverter collects the tags declared in route settings.
type TagConverter struct {
	registry *TagRegistry
}

func NewTagConverter(registry *TagRegistry) *TagConverter {
	return &TagConverter{registry: registry}
}

// Convert registers every declared tag and returns the number of new ones.
func (c *TagConverter) Convert(routes []route.Route) int {
	added := 0
	for _, r := range routes {
		for _, t := range r.Settings.Tags {
			if c.registry.Register(t) {
				added++
			}
		}
	}
	return added
}
