package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tripimg/common"
	"tripimg/fallback"
	"tripimg/imageurl"
	"tripimg/state"
)

func resolveNames(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return errors.New("nothing to resolve, specify image names")
	}
	out := cmd.Root().Writer
	for _, name := range cmd.Args().Slice() {
		fmt.Fprintf(out, "%s\t%s\n", name, env.Table.Resolve(name))
	}
	return nil
}

func printFallback(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	category, err := common.ParseCategory(cmd.String("category"))
	if err != nil {
		env.Log.Warn("Unknown image category, using destination", zap.Error(err))
		category = common.CategoryDestination
	}
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many names", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	fmt.Fprintln(cmd.Root().Writer, fallback.For(category, cmd.Args().Get(0)))
	return nil
}

func listTable(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	out := cmd.Root().Writer
	for _, key := range env.Table.Keys() {
		ref, _ := env.Table.Lookup(key)
		fmt.Fprintf(out, "%s\t%s\n", key, ref)
	}
	return nil
}

func printAttribution(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if env.Metadata == nil {
		return errors.New("image metadata is disabled in configuration")
	}
	if cmd.Args().Len() == 0 {
		return errors.New("nothing to look up, specify image names")
	}

	env.Metadata.Load(ctx)

	out := cmd.Root().Writer
	for _, name := range cmd.Args().Slice() {
		a := env.Metadata.Attribution(name)
		if a == nil {
			env.Log.Debug("No attribution", zap.String("name", name))
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", name, a.Author, a.License, a.Source)
	}
	return nil
}

func markupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Value: 800, Usage: "container `WIDTH` in CSS pixels"},
		&cli.IntFlag{Name: "height", Value: 600, Usage: "placeholder `HEIGHT` in CSS pixels"},
		&cli.FloatFlag{Name: "dpr", Value: 1, Usage: "device pixel `RATIO`"},
		&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Value: imageurl.DefaultQuality, Usage: "CDN `QUALITY` (1-100)"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(imageurl.FormatWebP), Usage: "requested `FORMAT` (webp, avif, jpeg, png)"},
	}
}

var knownFormats = []imageurl.Format{imageurl.FormatWebP, imageurl.FormatAVIF, imageurl.FormatJPEG, imageurl.FormatPNG}

// printMarkup outputs what page needs to render named images: delivery
// reference sized for container, responsive source set and placeholder.
func printMarkup(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return errors.New("nothing to render, specify image names")
	}

	format := imageurl.Format(cmd.String("format"))
	if !slices.Contains(knownFormats, format) {
		return fmt.Errorf("unknown image format %q", format)
	}
	width, height := int(cmd.Int("width")), int(cmd.Int("height"))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image box must be positive, got %dx%d", width, height)
	}
	quality := int(cmd.Int("quality"))

	out := cmd.Root().Writer
	for _, name := range cmd.Args().Slice() {
		ref := imageurl.Proxied(env.Table.Resolve(name))
		src := imageurl.Optimize(ref, imageurl.Options{
			Width:   imageurl.OptimalSize(width, cmd.Float("dpr")),
			Quality: quality,
			Format:  format,
		})
		fmt.Fprintf(out, "%s\n  src: %s\n  srcset: %s\n  placeholder: %s\n",
			name, src, imageurl.SrcSet(ref, nil, quality), imageurl.Placeholder(width, height, ""))
	}
	return nil
}
