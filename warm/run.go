// Package warm implements commands which fetch images: tier warming and
// dimension probing.
package warm

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tripimg/common"
	"tripimg/state"
	"tripimg/tiers"
)

// Flags of the warm command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "tier", Aliases: []string{"t"},
			Usage: "preload only `TIER` (supported tiers: " + strings.Join(common.TierNames(), ", ") + "), may be repeated"},
		&cli.DurationFlag{Name: "timeout", Usage: "override configured timeout of a single preload attempt"},
		&cli.BoolFlag{Name: "metrics", Usage: "print collected metrics in Prometheus text format"},
	}
}

// Run preloads requested tiers, all of them in lifecycle order when none
// requested, waits for background loads and reports results.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("warm")

	selected, err := parseTiers(cmd.StringSlice("tier"))
	if err != nil {
		return err
	}

	timeout := env.Cfg.Preload.Timeout
	if cmd.IsSet("timeout") {
		timeout = cmd.Duration("timeout")
	}

	w := &tiers.Warmer{
		Preloader: env.Preloader,
		Tiers:     tiers.New(env.Table),
		Timeout:   timeout,
	}

	log.Info("Warming starting", zap.Stringers("tiers", selected), zap.Duration("timeout", timeout))
	start := time.Now()

	for _, tier := range selected {
		w.PreloadTier(ctx, tier)
	}
	// below the fold tier is not waited for
	env.Preloader.Wait()

	stats := env.Preloader.Stats()
	log.Info("Warming completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("loaded", stats.Loaded),
		zap.Int("failed", stats.Failed),
		zap.Int("timed out", stats.TimedOut),
		zap.Duration("average", stats.AverageLoadTime()))

	out := cmd.Root().Writer
	for _, tier := range selected {
		for _, ref := range w.Tiers.Refs(tier) {
			fmt.Fprintf(out, "%s\t%s\t%s\n", tier, env.Preloader.State(ref), ref)
		}
	}
	fmt.Fprintf(out, "loaded: %d, failed: %d, timed out: %d, average: %s\n",
		stats.Loaded, stats.Failed, stats.TimedOut, stats.AverageLoadTime().Round(time.Millisecond))

	data, err := gatherMetrics(env.Registry)
	if err != nil {
		log.Warn("Unable to gather metrics", zap.Error(err))
		return nil
	}
	env.Rpt.StoreData("metrics.txt", data)
	if cmd.Bool("metrics") {
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("unable to write metrics: %w", err)
		}
	}
	return nil
}

// parseTiers returns requested tiers sorted in lifecycle order, every tier
// when nothing was requested.
func parseTiers(names []string) ([]common.Tier, error) {
	if len(names) == 0 {
		return []common.Tier{common.TierCritical, common.TierHero, common.TierAboveFold, common.TierBelowFold}, nil
	}
	selected := make([]common.Tier, 0, len(names))
	for _, name := range names {
		tier, err := common.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("unable to use tier %q: %w", name, err)
		}
		selected = append(selected, tier)
	}
	slices.Sort(selected)
	return slices.Compact(selected), nil
}

func gatherMetrics(g prometheus.Gatherer) ([]byte, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
