package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/msival/cli/render"
	"github.com/justapithecus/msival/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version        string `json:"version" yaml:"version"`
	JournalVersion string `json:"journal_version" yaml:"journal_version"`
	Commit         string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}
		r, err := render.NewRenderer(c, "")
		if err != nil {
			return err
		}
		return r.Render(VersionResponse{
			Version:        types.Version,
			JournalVersion: types.JournalVersion,
			Commit:         commit,
		})
	}
}
