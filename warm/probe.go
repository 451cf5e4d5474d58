package warm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tripimg/state"
)

// Probe resolves every argument, either name or image reference, and prints
// dimensions of the image. Failure to probe one image does not stop others.
func Probe(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("probe")

	if cmd.Args().Len() == 0 {
		return errors.New("nothing to probe, specify image names or references")
	}

	out := cmd.Root().Writer
	for _, arg := range cmd.Args().Slice() {
		if er := ctx.Err(); er != nil {
			return multierr.Append(err, er)
		}
		ref := arg
		if !isReference(arg) {
			ref = env.Table.Resolve(arg)
		}
		size, er := env.Loader.Probe(ctx, ref)
		if er != nil {
			log.Warn("Unable to probe image", zap.String("name", arg), zap.String("ref", ref), zap.Error(er))
			err = multierr.Append(err, fmt.Errorf("%s: %w", arg, er))
			continue
		}
		fmt.Fprintf(out, "%s\t%dx%d\t%s\n", arg, size.X, size.Y, ref)
	}
	return err
}

func isReference(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
