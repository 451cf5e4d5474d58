// Package tiers defines fixed batches of image references preloaded
// together, in page lifecycle order.
package tiers

import (
	"context"
	"slices"
	"time"

	"tripimg/common"
	"tripimg/imagemap"
	"tripimg/preload"
)

// Curated remote images shown above the fold next to the hero.
var aboveTheFold = []string{
	"https://upload.wikimedia.org/wikipedia/commons/d/df/Bangkok_Night_Wikimedia_Commons.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/thumb/f/f2/Panoramic_view_of_Chiang_Mai_City.jpg/2560px-Panoramic_view_of_Chiang_Mai_City.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/e/e1/Phuket_Island_-_panoramio.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/2/29/Songkran_002aa.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/2/2c/Traditional_Thai_Massage.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/0/00/Damnoen_Saduak_Floating_Market.jpg",
}

var belowTheFold = []string{
	"https://images.unsplash.com/photo-1552465011-b4e21bf6e79a?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"https://images.unsplash.com/photo-1506665531195-3566af2b4dfa?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"https://images.unsplash.com/photo-1578662996442-48f60103fc96?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"https://images.unsplash.com/photo-1540555700478-4be289fbecef?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
	"https://images.unsplash.com/photo-1565557623262-b51c2513a641?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80",
}

// Tiers holds reference lists, fixed at construction.
type Tiers struct {
	lists map[common.Tier][]string
}

// New builds tiers from table entries "hero" and "bangkok" and curated
// remote URLs.
func New(table *imagemap.Table) *Tiers {
	hero := table.Resolve("hero")
	return &Tiers{
		lists: map[common.Tier][]string{
			common.TierCritical:  {hero, table.Resolve("bangkok")},
			common.TierHero:      {hero},
			common.TierAboveFold: append([]string{hero}, aboveTheFold...),
			common.TierBelowFold: slices.Clone(belowTheFold),
		},
	}
}

// Refs returns copy of the tier list, nil for unknown tier.
func (t *Tiers) Refs(tier common.Tier) []string {
	return slices.Clone(t.lists[tier])
}

// Preloader is what Warmer needs from preload.Preloader.
type Preloader interface {
	Preload(ctx context.Context, refs []string, opts preload.Options)
}

// Warmer triggers preloading of tiers.
type Warmer struct {
	Preloader Preloader
	Tiers     *Tiers
	// Timeout of every attempt, preload.DefaultTimeout when zero.
	Timeout time.Duration
}

// PreloadTier preloads single tier. Caller waits unless tier is below the fold.
func (w *Warmer) PreloadTier(ctx context.Context, tier common.Tier) {
	w.Preloader.Preload(ctx, w.Tiers.Refs(tier), preload.Options{
		Priority: tier.Blocking(),
		Timeout:  w.Timeout,
	})
}

func (w *Warmer) PreloadCritical(ctx context.Context) {
	w.PreloadTier(ctx, common.TierCritical)
}

func (w *Warmer) PreloadHero(ctx context.Context) {
	w.PreloadTier(ctx, common.TierHero)
}

func (w *Warmer) PreloadAboveTheFold(ctx context.Context) {
	w.PreloadTier(ctx, common.TierAboveFold)
}

// PreloadBelowTheFold returns immediately, loads continue in background.
func (w *Warmer) PreloadBelowTheFold(ctx context.Context) {
	w.PreloadTier(ctx, common.TierBelowFold)
}

// PreloadAll preloads every tier in lifecycle order.
func (w *Warmer) PreloadAll(ctx context.Context) {
	for tier := common.TierCritical; tier <= common.TierBelowFold; tier++ {
		w.PreloadTier(ctx, tier)
	}
}
