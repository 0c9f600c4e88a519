// cmd/ramfuck/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"ramfuck/internal/audit"
	"ramfuck/internal/config"
	"ramfuck/internal/eventstream"
	"ramfuck/internal/session"
	"ramfuck/internal/shell"
	"ramfuck/internal/target"
)

const VERSION = "1.0.0"

// Build variables - GitCommit can be set during build with ldflags;
// BuildDate is computed at startup, so it reports the date the binary runs
var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

// Command aliases mapping
var commandAliases = map[string]string{
	"a": "attach",
	"s": "search",
	"f": "filter",
	"p": "peek",
	"w": "poke",
	"u": "undo",
	"e": "eval",
	"i": "shell",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
		args[0] = alias
	}

	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		showUsage()
		return
	}
	if cmd == "--version" || cmd == "-v" || cmd == "version" {
		showVersion()
		return
	}

	switch cmd {
	case "attach":
		cmdAttach(args[1:])
	case "search", "filter", "peek", "poke", "undo", "eval":
		fmt.Fprintln(os.Stderr, "search/filter/peek/poke/undo/eval only run inside a shell session: ramfuck attach <pid>")
		os.Exit(1)
	case "serve":
		cmdServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

// cmdAttach attaches to a running process by pid and drops into an
// interactive shell over it, optionally recording every command to an
// audit log and broadcasting scan progress to websocket watchers.
func cmdAttach(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: ramfuck attach <pid> [--audit-dsn dsn] [--audit-dialect sqlite|postgres|mysql|mssql] [--listen addr]")
		os.Exit(1)
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("invalid pid %q: %v", args[0], err)
	}

	var auditDSN, auditDialect, listenAddr string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--audit-dsn":
			i++
			if i < len(args) {
				auditDSN = args[i]
			}
		case "--audit-dialect":
			i++
			if i < len(args) {
				auditDialect = args[i]
			}
		case "--listen":
			i++
			if i < len(args) {
				listenAddr = args[i]
			}
		}
	}
	if auditDialect == "" {
		auditDialect = "sqlite"
	}

	t := target.NewLinuxTarget()
	ctx := context.Background()
	if err := t.Attach(ctx, pid); err != nil {
		log.Fatalf("attach pid %d: %v", pid, err)
	}
	defer t.Detach()

	sess := session.New(t, config.Default())

	var auditLog *audit.Log
	if auditDSN != "" {
		auditLog, err = audit.Open(auditDialect, auditDSN)
		if err != nil {
			log.Fatalf("opening audit log: %v", err)
		}
		defer auditLog.Close()
	}

	var publisher *eventstream.Publisher
	if listenAddr != "" {
		publisher = eventstream.NewPublisher(listenAddr)
		go func() {
			if err := publisher.ListenAndServe(); err != nil {
				log.Printf("eventstream: %v", err)
			}
		}()
		defer publisher.Close()
		sess.OnProgress = publisher.Publish
	}

	sh := shell.New(sess, os.Stdin, os.Stdout)
	if auditLog != nil {
		sh.OnCommand = func(line string) {
			auditLog.Record(ctx, audit.Entry{
				SessionID: sess.ID.String(),
				Command:   line,
				Detail:    "",
				At:        time.Now(),
			})
		}
	}
	sh.Run()
}

// cmdServe starts a standalone eventstream publisher with no attached
// target, useful for exercising a watcher UI against canned progress
// events during development.
func cmdServe(args []string) {
	addr := ":8787"
	if len(args) > 0 {
		addr = args[0]
	}
	p := eventstream.NewPublisher(addr)
	log.Printf("eventstream publisher listening on %s", addr)
	if err := p.ListenAndServe(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func showUsage() {
	fmt.Println("ramfuck - live process memory inspector")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ramfuck attach <pid>            Attach to a process and start a shell   (alias: a)")
	fmt.Println("    --audit-dsn <dsn>             Record every command to a SQL audit log")
	fmt.Println("    --audit-dialect <dialect>     sqlite (default) | postgres | mysql | mssql")
	fmt.Println("    --listen <addr>               Broadcast scan progress over websocket")
	fmt.Println("  ramfuck serve [addr]            Start a standalone eventstream publisher")
	fmt.Println()
	fmt.Println("Inside a shell:")
	fmt.Println("  search <type> <expr>            Scan all readable regions              (alias: s)")
	fmt.Println("  filter <type> <expr>             Narrow the current hit set             (alias: f)")
	fmt.Println("  list                             Print the current hit set")
	fmt.Println("  peek <addr> <type>               Read one value                         (alias: p)")
	fmt.Println("  poke <addr> <type> <expr>        Write one value                        (alias: w)")
	fmt.Println("  undo                             Revert the last poke                   (alias: u)")
	fmt.Println("  eval <expr>                      Evaluate any expression once           (alias: e)")
	fmt.Println("  quit / exit                      Leave the shell")
	fmt.Println()
	fmt.Println("Types:", typeNames())
	fmt.Println()
	fmt.Println("Help:")
	fmt.Println("  ramfuck --version                Show version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ramfuck attach 4242")
	fmt.Println("  ramfuck attach 4242 --audit-dsn audit.db --listen :8787")
}

func typeNames() string {
	return "s8 u8 s16 u16 s32 u32 s64 u64 f32 f64"
}

func showVersion() {
	fmt.Printf("ramfuck %s (build %s, commit %s)\n", VERSION, BuildDate, GitCommit)
}
