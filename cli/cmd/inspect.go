package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/msival/cli/render"
	"github.com/justapithecus/msival/cli/tui"
	"github.com/justapithecus/msival/journal"
	"github.com/justapithecus/msival/types"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the outputs and summary recorded in a validation journal",
		ArgsUsage: "<journal>",
		Flags: append(ReadOnlyFlags(), &cli.BoolFlag{
			Name:  "failures",
			Usage: "Show only error outputs and ICE error/failure messages",
		}),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("journal path required", 1)
	}

	r, err := render.NewRenderer(c, "")
	if err != nil {
		return err
	}

	j, err := journal.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read journal: %v", err), 1)
	}
	if c.Bool("failures") {
		j = failuresOnly(j)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectJournal, j)
	}
	return r.Render(j)
}

// failuresOnly returns a copy of j keeping only failure outputs.
func failuresOnly(j *journal.Journal) *journal.Journal {
	out := &journal.Journal{Summary: j.Summary}
	for _, o := range j.Outputs {
		if o.IsFailure() {
			out.Outputs = append(out.Outputs, o)
		}
	}
	if out.Outputs == nil {
		out.Outputs = []*types.Output{}
	}
	return out
}
