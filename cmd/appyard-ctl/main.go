// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// appyard-ctl is a command-line tool for controlling a running Appyard instance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/appyard/appyard/pkg/client"
)

var (
	version    = "0.9"
	apiURL     = "http://localhost:4400"
	jsonOutput = false

	apiClient *client.Client
)

func main() {
	if env := os.Getenv("APPYARD_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	// Parse global flags and filter them out
	var filteredArgs []string
	for _, arg := range os.Args[1:] {
		if arg == "-json" {
			jsonOutput = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	apiClient = client.New(apiURL)

	if len(filteredArgs) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := filteredArgs[0]
	args := filteredArgs[1:]

	var err error
	switch cmd {
	case "status":
		err = cmdStatus(args)
	case "start":
		err = cmdAction(args, "start")
	case "stop":
		err = cmdAction(args, "stop")
	case "restart":
		err = cmdAction(args, "restart")
	case "logs":
		err = cmdLogs(args)
	case "reconcile":
		err = cmdReconcile()
	case "events":
		err = cmdEvents(args)
	case "version", "-v", "--version":
		fmt.Printf("appyard-ctl %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`appyard-ctl - Control a running Appyard instance

Usage:
  appyard-ctl [-json] <command> [arguments]

Global Flags:
  -json          Output in JSON format

Environment:
  APPYARD_API    Base URL of Appyard API (default: http://localhost:4400)

Commands:
  status [app]          Show status of all apps or a specific app
  start <app>           Start an app
  stop <app>            Stop an app
  restart <app>         Restart an app

  logs <app> [-n N]     Show the last N log lines (default: 100)

  reconcile             Reload the server config and converge the app set

  events [options]      Show recent events
    -n N                Number of events (default: 50)
    -type <pattern>     Filter by type pattern (e.g., app.*)
    -app <name>         Filter by app name

  version               Show version
  help                  Show this help`)
}

// printJSON outputs any value as formatted JSON
func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func printAppTable(apps []client.App) {
	fmt.Printf("%-20s %-12s %-10s %-8s %-6s %s\n", "APP", "CATEGORY", "STATE", "PID", "PORT", "ERROR")
	fmt.Println(strings.Repeat("-", 78))
	for _, a := range apps {
		pid := "-"
		if a.PID > 0 {
			pid = strconv.Itoa(a.PID)
		}
		port := "-"
		if a.Port > 0 {
			port = strconv.Itoa(a.Port)
		}
		errMsg := a.LastError
		if errMsg == "" && a.Crash != nil {
			errMsg = a.Crash.Reason
			if a.Crash.Details != "" {
				errMsg += ": " + a.Crash.Details
			}
		}
		if len(errMsg) > 28 {
			errMsg = errMsg[:28] + "..."
		}
		fmt.Printf("%-20s %-12s %-10s %-8s %-6s %s\n", a.Name, a.Category, a.State, pid, port, errMsg)
	}
}

func cmdStatus(args []string) error {
	ctx := context.Background()

	if len(args) > 0 {
		a, err := apiClient.Apps.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(a)
			return nil
		}
		printAppTable([]client.App{*a})
		return nil
	}

	apps, err := apiClient.Apps.List(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(apps)
		return nil
	}
	printAppTable(apps)
	return nil
}

func cmdAction(args []string, verb string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: appyard-ctl %s <app>", verb)
	}
	ctx := context.Background()
	name := args[0]

	var (
		a   *client.App
		err error
	)
	switch verb {
	case "start":
		a, err = apiClient.Apps.Start(ctx, name)
	case "stop":
		a, err = apiClient.Apps.Stop(ctx, name)
	case "restart":
		a, err = apiClient.Apps.Restart(ctx, name)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(a)
		return nil
	}
	fmt.Printf("%s: %s\n", a.Name, a.State)
	return nil
}

func cmdLogs(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: appyard-ctl logs <app> [-n N]")
	}
	name := args[0]

	lines := 100
	for i := 1; i < len(args); i++ {
		if args[i] == "-n" && i+1 < len(args) {
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for -n: %s", args[i])
			}
			lines = n
		}
	}

	logs, err := apiClient.Apps.Logs(context.Background(), name, lines)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(logs)
		return nil
	}
	for _, line := range logs.Lines {
		fmt.Println(line)
	}
	return nil
}

func cmdReconcile() error {
	report, err := apiClient.Apps.Reconcile(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(report)
		return nil
	}

	fmt.Printf("%-20s %-12s %-10s %s\n", "APP", "ACTION", "STATE", "ERROR")
	fmt.Println(strings.Repeat("-", 60))
	for _, o := range report.Outcomes {
		errMsg := o.Error
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Printf("%-20s %-12s %-10s %s\n", o.Name, o.Action, o.State, errMsg)
	}
	return nil
}

func cmdEvents(args []string) error {
	opts := &client.ListOptions{Limit: 50}

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-n" && i+1 < len(args):
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for -n: %s", args[i])
			}
			opts.Limit = n
		case args[i] == "-type" && i+1 < len(args):
			i++
			opts.Types = append(opts.Types, args[i])
		case args[i] == "-app" && i+1 < len(args):
			i++
			opts.App = args[i]
		}
	}

	events, err := apiClient.Events.List(context.Background(), opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(events)
		return nil
	}

	for _, e := range events {
		app := e.App
		if app == "" {
			app = "-"
		}
		fmt.Printf("%s  %-20s %s\n", e.Timestamp.Format("15:04:05"), e.Type, app)
	}
	return nil
}
