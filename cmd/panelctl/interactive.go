package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/panelkit/paneld/pkg/client"
	"github.com/panelkit/paneld/pkg/model"
)

// interactive runs a readline shell over one client connection. Events
// arriving on subscribed topics print between prompts.
func interactive(ctx context.Context, c *client.Client) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "panel> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("creating readline: %w", err)
	}
	defer rl.Close()

	// Print pushed events without clobbering the prompt.
	go func() {
		for ev := range c.Events() {
			fmt.Fprint(rl.Stdout(), formatEvent(ev))
		}
	}()

	printInteractiveHelp(rl)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			printInteractiveHelp(rl)
		case "exit", "quit", "q":
			return nil
		case "subscribe", "sub":
			topic := model.TopicAll
			if len(args) > 0 {
				topic = args[0]
			}
			runInteractive(rl, func(reqCtx context.Context) (string, error) {
				if err := c.Subscribe(reqCtx, topic); err != nil {
					return "", err
				}
				return fmt.Sprintf("subscribed to %s\n", topic), nil
			})
		case "unsubscribe", "unsub":
			if len(args) != 1 {
				fmt.Fprintln(rl.Stdout(), "usage: unsubscribe <topic>")
				continue
			}
			runInteractive(rl, func(reqCtx context.Context) (string, error) {
				if err := c.Unsubscribe(reqCtx, args[0]); err != nil {
					return "", err
				}
				return "unsubscribed\n", nil
			})
		default:
			runInteractive(rl, func(reqCtx context.Context) (string, error) {
				return runCommand(reqCtx, c, cmd, args)
			})
		}
	}
}

func runInteractive(rl *readline.Instance, fn func(context.Context) (string, error)) {
	reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := fn(reqCtx)
	if err != nil {
		fmt.Fprintln(rl.Stdout(), "error:", errorDetail(err))
		return
	}
	fmt.Fprint(rl.Stdout(), out)
}

func printInteractiveHelp(rl *readline.Instance) {
	fmt.Fprint(rl.Stdout(), `commands:
  list                                      list attached devices
  profile <device>                          show profile tree
  bind <device> <key> <trigger> <kind> [params-json]
  unbind <device> <instance>
  press <device> <key>
  enter <device> <key> | back <device> | root <device>
  brightness <device> <percent>
  subscribe [topic] | unsubscribe <topic>
  help | exit
`)
}
