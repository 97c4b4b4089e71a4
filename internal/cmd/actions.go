package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Alia5/padbridge/actions"
)

// ActionsCommand groups special action subcommands.
type ActionsCommand struct {
	Check ActionsCheck `cmd:"" help:"Validate a special action catalog"`
}

// ActionsCheck loads a catalog, validates every action and prints it.
type ActionsCheck struct {
	File string `arg:"" help:"Catalog file (yaml, toml or json)" type:"existingfile"`
	JSON bool   `help:"Print the normalized catalog as JSON" name:"json"`
}

var errInvalidCatalog = errors.New("catalog has invalid actions")

func (a *ActionsCheck) Run() error {
	return a.check(os.Stdout)
}

func (a *ActionsCheck) check(w io.Writer) error {
	c, profiles, err := actions.LoadFile(a.File)
	if err != nil {
		return err
	}

	if a.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(actions.Export(c, profiles)); err != nil {
			return err
		}
	}

	invalid := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if !a.JSON {
		fmt.Fprintln(tw, "NAME\tTRIGGER\tKIND\tDETAILS\tSTATUS")
	}
	for _, d := range c.All() {
		status := "ok"
		if err := actions.Validate(d); err != nil {
			status = err.Error()
			invalid++
		}
		if !a.JSON {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Trigger, d.Kind, d.Details, status)
		}
	}
	if !a.JSON {
		for _, name := range profiles.Names() {
			fmt.Fprintf(tw, "profile %s\t%s\t\t\t\n", name, strings.Join(profiles[name], ", "))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d", errInvalidCatalog, invalid)
	}
	return nil
}
