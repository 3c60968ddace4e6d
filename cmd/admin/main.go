package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "orbarena.io/internal/persistence/log"
	"orbarena.io/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "matches":
			matchesCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "reset":
			resetCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the worlds under the data dir, or the event log files of
// one world.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID, "events")
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "arena_1", "world id (used when -file is empty)")
	file := fs.String("file", "", "event log file (.jsonl.zst); defaults to every file of -world")
	match := fs.String("match", "", "only events of this match")
	kind := fs.String("kind", "", "only events of this kind")
	_ = fs.Parse(args)

	files := []string{strings.TrimSpace(*file)}
	if files[0] == "" {
		var err error
		files, err = eventLogFiles(filepath.Join(*dataDir, "worlds", *worldID, "events"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "list logs:", err)
			os.Exit(1)
		}
	}
	filter := func(e world.EventEntry) bool {
		return (*match == "" || e.MatchID == *match) && (*kind == "" || e.Kind == *kind)
	}
	for _, path := range files {
		if err := dumpLog(os.Stdout, path, filter); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

// eventLogFiles returns the .jsonl.zst files in dir. The hour stamp in the
// name sorts chronologically.
func eventLogFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// dumpLog writes the entries of one compressed log as JSON lines.
func dumpLog(w io.Writer, path string, keep func(world.EventEntry) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(w)
	return persistlog.ReadEvents(f, func(e world.EventEntry) error {
		if keep != nil && !keep(e) {
			return nil
		}
		return enc.Encode(e)
	})
}
