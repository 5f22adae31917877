package load

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"edi835/remit"
	"edi835/state"
)

// Inspect is the "inspect" action: prints reconstructed loop tree of every
// interchange found in source without storing anything.
func Inspect(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Logger("inspect")

	src, err := sourceArg(cmd)
	if err != nil {
		return err
	}
	setupCharsets(env, cmd, log)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	return process(ctx, src, func(ctx context.Context, r io.Reader, src string, log *zap.Logger) error {
		return inspectFile(ctx, r, src, out, log)
	}, log)
}

func inspectFile(ctx context.Context, r io.Reader, src string, out io.Writer, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	ic, err := readInterchange(r)
	if err != nil {
		return fmt.Errorf("unable to read interchange (%s): %w", src, err)
	}

	tree := newTreeSink()
	base := ic.baseState(env.Cfg.Parser.RepetitionSeparator, env.Cfg.Parser.ComponentSeparator)
	obs := remit.LogObserver(env.Logger("remit"), env.Cfg.Parser.TraceTransitions)

	loaded, err := dispatch(ctx, ic, tree, base, obs, log)
	if _, werr := fmt.Fprintf(out, "# %s: %d of %d transaction(s)\n%s", src, loaded, len(ic.transactions), tree); werr != nil {
		return werr
	}
	return err
}
