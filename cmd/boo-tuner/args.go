package main

import (
	"strings"

	"github.com/urfave/cli/v3"
)

// splitKnownArgs reorders argv so urfave/cli only parses flags boo-tuner
// defines. Every other token keeps its order and goes after a "--" for the
// kernel-shape parser, so that
//
//	boo-tuner convbfp16 -n 6 -c 112 --num-candidates 5000
//
// becomes
//
//	boo-tuner --num-candidates 5000 -- convbfp16 -n 6 -c 112
//
// A subcommand is recognized only before the first pass-through token.
func splitKnownArgs(root *cli.Command, argv []string) []string {
	if len(argv) == 0 {
		return argv
	}
	known := []string{argv[0]}
	var rest []string
	cur := root
	table := flagTable(root.Flags, nil)

	for i := 1; i < len(argv); i++ {
		a := argv[i]
		if a == "--" {
			rest = append(rest, argv[i+1:]...)
			break
		}
		if name, inline, ok := flagName(a); ok {
			if takesValue, found := table[name]; found {
				known = append(known, a)
				if takesValue && !inline && i+1 < len(argv) {
					i++
					known = append(known, argv[i])
				}
				continue
			}
		} else if len(rest) == 0 {
			if a == "help" {
				return append(known, argv[i:]...)
			}
			if sub := findCommand(cur, a); sub != nil {
				cur = sub
				table = flagTable(sub.Flags, table)
				known = append(known, a)
				continue
			}
		}
		rest = append(rest, a)
	}

	if len(rest) > 0 {
		known = append(known, "--")
		known = append(known, rest...)
	}
	return known
}

// flagName extracts the flag name from "--name", "--name=value" or a
// single-character "-h". Other single-dash tokens belong to the driver
// grammar.
func flagName(a string) (name string, inline bool, ok bool) {
	switch {
	case strings.HasPrefix(a, "--") && len(a) > 2:
		name, _, inline = strings.Cut(a[2:], "=")
		return name, inline, true
	case len(a) == 2 && a[0] == '-' && a[1] != '-':
		return a[1:], false, true
	default:
		return "", false, false
	}
}

// flagTable maps every flag name to whether it consumes a value.
func flagTable(flags []cli.Flag, inherited map[string]bool) map[string]bool {
	table := map[string]bool{"help": false, "h": false}
	for k, v := range inherited {
		table[k] = v
	}
	for _, f := range flags {
		_, isBool := f.(*cli.BoolFlag)
		for _, n := range f.Names() {
			table[n] = !isBool
		}
	}
	return table
}

func findCommand(cmd *cli.Command, name string) *cli.Command {
	for _, c := range cmd.Commands {
		if c.Name == name {
			return c
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return c
			}
		}
	}
	return nil
}
