// Package common keeps enumerations shared between configuration, library
// packages and the command line.
package common

// Image category used to select a generic fallback.
// ENUM(destination, activity)
type Category int

// Preload tier, in page lifecycle order.
// ENUM(critical, hero, above-fold, below-fold)
type Tier int

// Blocking reports whether the tier is preloaded with caller waiting for
// every attempt to settle.
func (t Tier) Blocking() bool {
	return t != TierBelowFold
}
