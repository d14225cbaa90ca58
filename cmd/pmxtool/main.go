// pmxtool is a CLI utility for inspecting and rebinding the textures of PMX models.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/qxdqhr/sa2kit-sub004/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries the output streams of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	defer logger.Sync()
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	command := args[0]
	args = args[1:]

	var err error
	switch command {
	case "info":
		err = c.cmdInfo(args)
	case "textures", "tex":
		err = c.cmdTextures(args)
	case "materials", "mat":
		err = c.cmdMaterials(args)
	case "mappings", "map":
		err = c.cmdMappings(args)
	case "add-texture":
		err = c.cmdAddTexture(args)
	case "rename-texture":
		err = c.cmdRenameTexture(args)
	case "delete-texture":
		err = c.cmdDeleteTexture(args)
	case "bind":
		err = c.cmdBind(args)
	case "update-material":
		err = c.cmdUpdateMaterial(args)
	case "apply":
		err = c.cmdApply(args)
	case "check":
		err = c.cmdCheck(args)
	case "watch":
		err = c.cmdWatch(args)
	case "config":
		err = c.cmdConfig(args)
	case "help", "-h", "--help":
		c.printUsage()
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", command)
		c.printUsage()
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var u usageError
		if errors.As(err, &u) {
			fmt.Fprintf(c.stderr, "Usage: pmxtool %s\n", u.usage)
			return 2
		}
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// usageError reports wrong positional arguments.
type usageError struct {
	usage string
}

func (e usageError) Error() string { return "usage: pmxtool " + e.usage }

func (c *cli) printUsage() {
	fmt.Fprintln(c.stdout, `pmxtool - PMX model texture binding utility

Usage:
  pmxtool <command> [options] <model.pmx> [args]

Commands:
  info <model.pmx>                           Show header, counts and geometry summary
  textures <model.pmx>                       List the texture table with references
  materials <model.pmx>                      List materials and their bindings
  mappings [-format f] <model.pmx>           Export the material texture mapping (yaml, json, toml)
  add-texture <model.pmx> <path>             Append a texture path
  rename-texture <model.pmx> <tex> <path>    Change the path of a texture
  delete-texture [-unbind] <model.pmx> <tex> Remove an unreferenced texture
  bind -material N -slot S <model.pmx> <tex> Bind a texture to a material slot (main, sphere, toon)
  update-material -material N -patch P <model.pmx>
                                             Merge YAML fields into a material
  apply -script edits.yaml <model.pmx>       Run a batch of edits with undo/redo
  check <model.pmx>                          Verify bound texture files exist and decode
  watch <model.pmx>                          Re-check the model whenever it or a texture changes
  config [-write file|user] [-force]         Print or save the effective configuration

<tex> is a texture index or a path already in the table.
Edits are written to -o, or back to the input with -overwrite.

Common options:
  -config path   Config file (default ./pmxtool.yaml or the user config dir)
  -debug         Enable debug logging
  -log-file path Also write logs to a rotating file

Examples:
  pmxtool textures miku.pmx
  pmxtool bind -material 3 -slot sphere -mode add -o out.pmx miku.pmx tex/env.spa
  pmxtool mappings -format json miku.pmx > mapping.json
  pmxtool check miku.pmx`)
}
