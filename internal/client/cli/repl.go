package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isAdmin() bool
	Available(ctx context.Context, args []string) error
	Register(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Passwd(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	SetMeta(ctx context.Context, args []string) error
	SetSecret(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Admin(ctx context.Context, args []string) error
	Wipe(ctx context.Context, args []string) error
	Backup(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Ping(ctx context.Context, args []string) error
}

const (
	userHelp  = "Available commands: available, register, show, verify, passwd, rename, setmeta, setsecret, remove, admin, ping, exit"
	adminHelp = "Admin commands: wipe, backup [path], restore <key>"
)

// runREPL reads one command per line from reader, dispatches it to a and
// prints the prompt with statusFn before each read. It exits on EOF or when
// the user types "exit" or "quit".
//
// Command arguments are passed through unparsed. Handlers report their own
// errors, so a failing command never ends the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ck (%s)> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(userHelp)
			if a.isAdmin() {
				printlnFn(adminHelp)
			}
		case "available":
			_ = a.Available(ctx, args)
		case "register":
			_ = a.Register(ctx, args)
		case "show":
			_ = a.Show(ctx, args)
		case "verify":
			_ = a.Verify(ctx, args)
		case "passwd":
			_ = a.Passwd(ctx, args)
		case "rename":
			_ = a.Rename(ctx, args)
		case "setmeta":
			_ = a.SetMeta(ctx, args)
		case "setsecret":
			_ = a.SetSecret(ctx, args)
		case "remove":
			_ = a.Remove(ctx, args)
		case "admin":
			_ = a.Admin(ctx, args)
		case "wipe":
			_ = a.Wipe(ctx, args)
		case "backup":
			_ = a.Backup(ctx, args)
		case "restore":
			_ = a.Restore(ctx, args)
		case "ping":
			_ = a.Ping(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
