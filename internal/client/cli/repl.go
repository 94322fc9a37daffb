package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// runREPL reads one command per line until EOF or "exit".
//
//	help                          show available commands
//	create [alias] [password]     create a syncshell owned by the current user
//	join <gid|alias>              join a syncshell
//	exit | quit                   leave the program
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a *App, scanner *bufio.Scanner) {
	for {
		fmt.Fprintf(a.out, "pairsync %s> ", a.config.UID)
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Available commands: create [alias] [password], join <gid|alias>, exit")
		case "create":
			a.create(ctx, args)
		case "join":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: join <gid|alias>")
				continue
			}
			a.join(ctx, args[0])
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}

func (a *App) create(ctx context.Context, args []string) {
	var alias, password string
	if len(args) > 0 {
		alias = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	resp, err := a.api.CreateSyncshell(ctx, alias, password)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintf(a.out, "Created %s (password: %s)\n", resp.GID, resp.Password)
}

func (a *App) join(ctx context.Context, gidOrAlias string) {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	if err := a.api.JoinSyncshell(ctx, gidOrAlias); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintln(a.out, "Joined", gidOrAlias)
}
