// Command panelctl is the command-line client for paneld.
//
// Usage:
//
//	panelctl [flags] <command> [args]
//
// Commands:
//
//	list                                    List attached devices
//	profile <device>                        Show a device's profile tree
//	bind <device> <key> <trigger> <kind> [params-json]
//	                                        Bind an action to a button
//	unbind <device> <instance>              Remove a binding
//	press <device> <key>                    Simulate a button push
//	enter <device> <key>                    Open the folder at key
//	back <device>                           Go up one level
//	root <device>                           Collapse to the root screen
//	brightness <device> <percent>           Set backlight brightness
//	watch [topic]                           Stream events (default "all")
//	interactive                             Start an interactive shell
//
// Examples:
//
//	panelctl list
//	panelctl bind sim-1 0 press toggle
//	panelctl bind sim-1 1 press folder '{"target":2}'
//	panelctl watch device:sim-1
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panelkit/paneld/pkg/client"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/version"
)

var (
	flagSocket  = flag.String("socket", "/run/paneld/paneld.sock", "Daemon control socket path")
	flagTimeout = flag.Duration("timeout", 5*time.Second, "Per-request timeout")
	flagVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *flagVersion {
		fmt.Println("panelctl", version.String())
		return
	}
	if err := run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "panelctl:", errorDetail(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := client.Connect(ctx, *flagSocket)
	if err != nil {
		return err
	}
	defer c.Close()

	switch args[0] {
	case "watch":
		topic := model.TopicAll
		if len(args) > 1 {
			topic = args[1]
		}
		return watch(ctx, c, topic)
	case "interactive":
		return interactive(ctx, c)
	default:
		reqCtx, reqCancel := context.WithTimeout(ctx, *flagTimeout)
		defer reqCancel()
		out, err := runCommand(reqCtx, c, args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
}

// watch subscribes to a topic and prints events until interrupted.
func watch(ctx context.Context, c *client.Client, topic string) error {
	reqCtx, cancel := context.WithTimeout(ctx, *flagTimeout)
	err := c.Subscribe(reqCtx, topic)
	cancel()
	if err != nil {
		return err
	}
	fmt.Printf("watching %s (ctrl-c to stop)\n", topic)

	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return fmt.Errorf("connection lost")
			}
			fmt.Print(formatEvent(ev))
		case <-ctx.Done():
			return nil
		}
	}
}

func formatEvent(ev model.Event) string {
	switch ev.Type {
	case model.EventButtonImageChanged:
		return fmt.Sprintf("%-22s %s key=%d image=%d bytes\n",
			ev.Type, ev.DeviceID, *ev.Key, len(ev.Image))
	case model.EventButtonUpdated:
		return fmt.Sprintf("%-22s %s key=%d\n", ev.Type, ev.DeviceID, *ev.Key)
	case model.EventProfileNavigated:
		return fmt.Sprintf("%-22s %s node=%q depth=%d\n",
			ev.Type, ev.DeviceID, ev.Node, ev.StackDepth)
	default:
		return fmt.Sprintf("%-22s %s\n", ev.Type, ev.DeviceID)
	}
}
