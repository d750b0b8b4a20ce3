package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/panelkit/paneld/pkg/client"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/wire"
)

// runCommand executes one command and returns its printable output.
// Shared between one-shot invocation and the interactive shell.
func runCommand(ctx context.Context, c *client.Client, cmd string, args []string) (string, error) {
	switch cmd {
	case "list":
		return cmdList(ctx, c)
	case "profile":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: profile <device>")
		}
		return cmdProfile(ctx, c, args[0])
	case "bind":
		if len(args) < 4 || len(args) > 5 {
			return "", fmt.Errorf("usage: bind <device> <key> <trigger> <kind> [params-json]")
		}
		return cmdBind(ctx, c, args)
	case "unbind":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: unbind <device> <instance>")
		}
		if err := c.Unbind(ctx, args[0], args[1]); err != nil {
			return "", err
		}
		return "unbound\n", nil
	case "press":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: press <device> <key>")
		}
		return cmdPress(ctx, c, args[0], args[1])
	case "enter":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: enter <device> <key>")
		}
		key, err := parseKey(args[1])
		if err != nil {
			return "", err
		}
		if err := c.Enter(ctx, args[0], key); err != nil {
			return "", err
		}
		return "entered\n", nil
	case "back":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: back <device>")
		}
		if err := c.Back(ctx, args[0]); err != nil {
			return "", err
		}
		return "ok\n", nil
	case "root":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: root <device>")
		}
		if err := c.DropToRoot(ctx, args[0]); err != nil {
			return "", err
		}
		return "ok\n", nil
	case "brightness":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: brightness <device> <percent>")
		}
		percent, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return "", fmt.Errorf("invalid percent %q", args[1])
		}
		if err := c.SetBrightness(ctx, args[0], uint8(percent)); err != nil {
			return "", err
		}
		return "ok\n", nil
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}

func parseKey(s string) (uint8, error) {
	key, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q", s)
	}
	return uint8(key), nil
}

func cmdList(ctx context.Context, c *client.Client) (string, error) {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "no devices attached\n", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-6s %-10s\n", "DEVICE", "GRID", "IMAGE")
	for _, dev := range devices {
		fmt.Fprintf(&b, "%-16s %dx%-4d %dx%d %s\n",
			dev.ID, dev.Descriptor.Rows, dev.Descriptor.Columns,
			dev.Descriptor.ImageWidth, dev.Descriptor.ImageHeight,
			dev.Descriptor.Format)
	}
	return b.String(), nil
}

func cmdProfile(ctx context.Context, c *client.Client, deviceID string) (string, error) {
	prof, err := c.GetProfile(ctx, deviceID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "brightness: %d%%\n", prof.Brightness)
	b.WriteString("stack:")
	for _, entry := range prof.Stack {
		fmt.Fprintf(&b, " %s(%d)", entry.Name, entry.Node)
	}
	b.WriteString("\n")
	for _, node := range prof.Document.Nodes {
		fmt.Fprintf(&b, "node %d %q\n", node.ID, node.Name)
		for _, button := range node.Buttons {
			fmt.Fprintf(&b, "  key %d\n", button.Key)
			for _, binding := range button.Bindings {
				fmt.Fprintf(&b, "    %-8s %-10s %s\n",
					binding.Trigger, binding.Kind, binding.ID)
			}
		}
	}
	return b.String(), nil
}

func cmdBind(ctx context.Context, c *client.Client, args []string) (string, error) {
	key, err := parseKey(args[1])
	if err != nil {
		return "", err
	}
	trigger, err := model.ParseTrigger(args[2])
	if err != nil {
		return "", err
	}
	var params map[string]any
	if len(args) == 5 {
		if err := json.Unmarshal([]byte(args[4]), &params); err != nil {
			return "", fmt.Errorf("invalid params json: %w", err)
		}
	}
	instanceID, err := c.BindAction(ctx, args[0], key, trigger, args[3], params)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("bound %s\n", instanceID), nil
}

func cmdPress(ctx context.Context, c *client.Client, deviceID, keyArg string) (string, error) {
	key, err := parseKey(keyArg)
	if err != nil {
		return "", err
	}
	result, err := c.PressButton(ctx, deviceID, key)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range result.Results {
		fmt.Fprintf(&b, "%s:", r.Trigger)
		if len(r.Instances) == 0 {
			b.WriteString(" no bindings")
		}
		for _, inst := range r.Instances {
			status := "ok"
			if inst.Error != "" {
				status = inst.Error
			}
			fmt.Fprintf(&b, " %s=%s", inst.Kind, status)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// errorDetail augments client errors with their wire code when present.
func errorDetail(err error) string {
	var ep *wire.ErrorPayload
	if errors.As(err, &ep) {
		return fmt.Sprintf("[%s] %s", ep.Code, ep.Message)
	}
	return err.Error()
}
