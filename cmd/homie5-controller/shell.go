package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/controller"
)

func newShellCmd(g *globalOptions) *cobra.Command {
	var meta bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive controller shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "homie5> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			sh := newShell(nil, e.domain, rl.Stdout())
			ctl, closeFn, err := e.connect(ctx, meta, sh.handleEvent)
			if err != nil {
				return err
			}
			defer closeFn()

			sh.ctl = ctl
			sh.run(ctx, rl)
			return nil
		},
	}
	cmd.Flags().BoolVar(&meta, "meta", false, "also collect $meta data")
	return cmd
}

type shell struct {
	ctl    *controller.Controller
	domain homie5.HomieDomain
	out    io.Writer
	events atomic.Bool
}

func newShell(ctl *controller.Controller, domain homie5.HomieDomain, out io.Writer) *shell {
	sh := &shell{ctl: ctl, domain: domain, out: out}
	sh.events.Store(true)
	return sh
}

func (s *shell) handleEvent(ev controller.Event) {
	if s.events.Load() {
		fmt.Fprintln(s.out, formatEvent(ev))
	}
}

func (s *shell) run(ctx context.Context, rl *readline.Instance) {
	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}
		if s.exec(line) {
			fmt.Fprintln(s.out, "Exiting...")
			return
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "devices", "ls", "list":
		err = printDevices(s.out, s.ctl.Devices())
	case "show":
		err = s.cmdShow(args)
	case "set":
		err = s.cmdSet(args)
	case "broadcast":
		if len(args) < 2 {
			err = fmt.Errorf("usage: broadcast <subtopic> <message>")
			break
		}
		err = s.ctl.Broadcast(args[0], strings.Join(args[1:], " "))
	case "remove":
		err = s.cmdRemove(args)
	case "events":
		err = s.cmdEvents(args)
	case "exit", "quit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *shell) cmdShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <device>")
	}
	ref, err := parseDevice(s.domain, args[0])
	if err != nil {
		return err
	}
	dev, ok := s.ctl.Device(ref)
	if !ok {
		return fmt.Errorf("%w: %s", controller.ErrUnknownDevice, ref.ID)
	}
	return printDevices(s.out, []controller.Device{dev})
}

func (s *shell) cmdSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <device>/<node>/<property> <value>")
	}
	prop, err := parseProperty(s.domain, args[0])
	if err != nil {
		return err
	}
	return s.ctl.SetString(prop, strings.Join(args[1:], " "))
}

func (s *shell) cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <device>")
	}
	ref, err := parseDevice(s.domain, args[0])
	if err != nil {
		return err
	}
	return s.ctl.RemoveDevice(ref)
}

func (s *shell) cmdEvents(args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: events on|off")
	}
	s.events.Store(args[0] == "on")
	return nil
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, `
Homie 5 Controller Commands:
  devices                            - List devices and property values
  show <device>                      - Show one device
  set <device>/<node>/<prop> <value> - Send a set command
  broadcast <subtopic> <message>     - Publish a broadcast
  remove <device>                    - Clear a device from the broker
  events on|off                      - Toggle event output
  help                               - Show this help
  exit                               - Leave the shell`)
}
