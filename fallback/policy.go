// Package fallback supplies substitute images for references which failed
// to load.
package fallback

import (
	"tripimg/common"
	"tripimg/imagemap"
)

const (
	DestinationFallback = "https://images.unsplash.com/photo-1552465011-b4e21bf6e79a?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80"
	ActivityFallback    = "https://images.unsplash.com/photo-1506665531195-3566af2b4dfa?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80"
)

// curated activity fallbacks, keyed by canonical name
var activities = map[string]string{
	"songkran festival":       "https://images.unsplash.com/photo-1578662996442-48f60103fc96?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"thai massage & wellness": "https://images.unsplash.com/photo-1540555700478-4be289fbecef?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"floating markets":        "https://images.unsplash.com/photo-1506665531195-3566af2b4dfa?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"muay thai":               "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"thai cuisine":            "https://images.unsplash.com/photo-1565557623262-b51c2513a641?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"buddhist temples":        "https://images.unsplash.com/photo-1506665531195-3566af2b4dfa?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
}

// For returns fallback reference for category. For activities with a curated
// fallback the specific reference is returned. Name may be empty. Values
// outside of the enumeration are treated as destinations.
func For(category common.Category, name string) string {
	if category == common.CategoryActivity {
		if ref, ok := activities[imagemap.Normalize(name)]; ok {
			return ref
		}
		return ActivityFallback
	}
	return DestinationFallback
}

// Curated returns names of activities with specific fallbacks.
func Curated() []string {
	names := make([]string, 0, len(activities))
	for k := range activities {
		names = append(names, k)
	}
	return names
}
