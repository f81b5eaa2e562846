// Command lsmkv-cli is a line-oriented REPL over a store.Store, useful
// for poking at a data root by hand without writing a Go program.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	lsmkv "github.com/lsm-kv/lsmkv"
	"github.com/lsm-kv/lsmkv/store"
)

const version = "1.0.0"

func main() {
	path := flag.String("path", "", "data root directory")
	flag.Usage = printUsage
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "lsmkv-cli: -path is required")
		printUsage()
		os.Exit(1)
	}

	opts := lsmkv.DefaultOptions()
	opts.Path = *path
	s, err := store.Open(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lsmkv-cli: open %s: %v\n", *path, err)
		os.Exit(1)
	}
	defer s.Close()

	repl(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `lsmkv-cli %s - interactive driver over an lsmkv data root

Usage:
  lsmkv-cli -path <data_root>

Commands (typed at the prompt):
  put <key> <value>
  get <key>
  del <key>
  scan <lo> <hi>
  reset
  stats
  quit
`, version)
}

func repl(s *store.Store) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("lsmkv> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if err := dispatch(s, line); err != nil {
				if err == errQuit {
					return
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
		fmt.Print("lsmkv> ")
	}
}

var errQuit = fmt.Errorf("quit")

func dispatch(s *store.Store, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "put":
		if len(args) < 2 {
			return fmt.Errorf("usage: put <key> <value>")
		}
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", args[0], err)
		}
		value := strings.Join(args[1:], " ")
		return s.Put(key, []byte(value))

	case "get":
		if len(args) < 1 {
			return fmt.Errorf("usage: get <key>")
		}
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", args[0], err)
		}
		v, found, err := s.Get(key)
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Printf("%s\n", v)
		return nil

	case "del":
		if len(args) < 1 {
			return fmt.Errorf("usage: del <key>")
		}
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", args[0], err)
		}
		deleted, err := s.Delete(key)
		if err != nil {
			return err
		}
		fmt.Println(deleted)
		return nil

	case "scan":
		if len(args) < 2 {
			return fmt.Errorf("usage: scan <lo> <hi>")
		}
		lo, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid lo %q: %w", args[0], err)
		}
		hi, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid hi %q: %w", args[1], err)
		}
		return s.Scan(lo, hi, func(key uint64, value []byte) {
			fmt.Printf("%d\t%s\n", key, value)
		})

	case "reset":
		return s.Reset()

	case "stats":
		fmt.Println("stats: not tracked separately from the data root's on-disk layout")
		return nil

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
