// Command verifile tracks the integrity of designated
// files. It records a content digest per file in a JSON
// ledger and reports every tracked file that has since
// changed, disappeared, or become unreadable.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
)

func main() {
	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)

	go func() {
		<-intr
		slog.Error("interrupted")
		os.Exit(1)
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()

		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "add":
		return cmdAdd(rest)

	case "add-dir":
		return cmdAddDir(rest)

	case "check":
		return cmdCheck(rest)

	case "check-all":
		return cmdCheckAll(rest)

	case "list":
		return cmdList(rest)

	case "report":
		return cmdReport(rest)

	case "remove":
		return cmdRemove(rest)

	case "help", "-h", "--help":
		usage()

		return nil

	default:
		usage()

		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: verifile <command> [options] [path]

Commands:
  add <file>       Start tracking a file
  add-dir <dir>    Track every matching file under a directory
  check <file>     Verify one tracked file
  check-all        Verify every tracked file
  list             Show tracked files and their last known status
  report           Verify every tracked file and write a text report
  remove <file>    Stop tracking a file

Options:
  -a, -algorithm   Digest algorithm: md5, sha1, sha256 or sha512
  -d, -database    Ledger file location
  -r, -recursive   Recurse into subdirectories (add-dir)
  -e, -extensions  Extension filter, repeatable (add-dir)
  -o, -output      Report output path (report)
  -c, -config      Config file (default verifile.yaml when present)
`)
}
