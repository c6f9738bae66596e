// Package main provides the tnrun CLI: a bare os.Args dispatcher over
// the tensor-network engine, grounded on the teacher's cmd/born
// version-subcommand stub and extended with subcommands for inspecting
// a tensor file and validating a persisted contraction-plan cache
// (spec.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/tnet-go/tnet/format"
	"github.com/tnet-go/tnet/planner"
	"github.com/tnet-go/tnet/space"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("tnrun %s\n", version)
		return
	case "inspect":
		err = inspect(os.Args[2:])
	case "plan-cache":
		err = planCache(os.Args[2:])
	default:
		usage()
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tnrun:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("tnrun - tensor-network engine CLI")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version               Show version")
	fmt.Println("  inspect <file>        Print a tensor file's shape, signature, and element count")
	fmt.Println("  plan-cache <file>     Load a persisted plan cache and report whether it parsed")
}

func inspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tnrun inspect <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	reg := space.New()
	t, data, err := format.ReadDense(f, reg)
	if err != nil {
		f2, reopenErr := os.Open(args[0])
		if reopenErr != nil {
			return err
		}
		defer f2.Close()
		var listErr error
		t, _, listErr = format.ReadList(f2, reg)
		if listErr != nil {
			return fmt.Errorf("neither dense nor list mode parsed: %w", err)
		}
		fmt.Printf("name=%s shape=%s rank=%d mode=list\n", t.Name(), t.Shape(), t.Rank())
		return nil
	}
	fmt.Printf("name=%s shape=%s rank=%d elements=%d mode=dense\n", t.Name(), t.Shape(), t.Rank(), len(data))
	return nil
}

func planCache(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tnrun plan-cache <file>")
	}
	c, err := planner.LoadCache(args[0])
	if err != nil {
		return err
	}
	_ = c // Cache does not enumerate its keys publicly; loading validates the file.
	fmt.Println("plan cache loaded successfully:", args[0])
	return nil
}
