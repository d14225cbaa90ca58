package main

import (
	"fmt"
)

func (c *cli) cmdConfig(args []string) error {
	fs, flags := c.flagSet("config")
	write := fs.String("write", "", `Write the effective config to this file ("user" for the user config dir)`)
	force := fs.Bool("force", false, "Replace an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(flags)
	if err != nil {
		return err
	}

	switch *write {
	case "":
		if src := cfg.Source(); src != "" {
			fmt.Fprintf(c.stdout, "# loaded from %s\n", src)
		}
		return cfg.Encode(c.stdout)
	case "user":
		path, err := cfg.Save(*force)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "wrote %s\n", path)
	default:
		if err := cfg.SaveTo(*write, *force); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "wrote %s\n", *write)
	}
	return nil
}
