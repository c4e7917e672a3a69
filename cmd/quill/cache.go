package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/store"
)

func handleCacheCommand(args []string) {
	sub := "ls"
	if len(args) > 0 {
		sub = args[0]
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fatal(err)
	}
	if m == nil {
		wd, _ := os.Getwd()
		m = manifest.Default(wd)
	}

	switch sub {
	case "ls", "list":
		if err := listCache(m.CachePath()); err != nil {
			fatal(err)
		}
	case "clear":
		if err := clearCache(m.CachePath()); err != nil {
			fatal(err)
		}
	case "path":
		fmt.Println(m.CachePath())
	case "-h", "--help", "help":
		fmt.Fprintf(os.Stderr, "Usage: quill cache [ls|clear|path]\n\n")
		fmt.Fprintf(os.Stderr, "  ls      List cached images (default)\n")
		fmt.Fprintf(os.Stderr, "  clear   Remove every cached image\n")
		fmt.Fprintf(os.Stderr, "  path    Print the cache database path\n")
	default:
		fatal(fmt.Errorf("unknown cache command %q", sub))
	}
}

func listCache(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("cache is empty")
		return nil
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("cache is empty")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tBUILD\tCREATED\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, e.BuildID, e.Created.Format("2006-01-02 15:04:05"), formatBytes(e.Size))
	}
	return w.Flush()
}

func clearCache(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.Delete(e.Key); err != nil {
			return err
		}
	}
	fmt.Printf("removed %d cached images\n", len(entries))
	return nil
}
