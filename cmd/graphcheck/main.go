// Command graphcheck validates a graph document file and prints its
// planned execution order without touching any backend.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/execution/plan"
	"github.com/pixelflow-labs/pixelflow-go/internal/graph"
)

func main() {
	startNode := flag.String("start", "", "plan only this node and its ancestors")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: graphcheck [-start NODE] GRAPH_FILE")
		os.Exit(2)
	}
	path := flag.Arg(0)

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	doc, err := graph.Decode(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := graph.Validate(doc); err != nil {
		fmt.Fprintf(os.Stderr, "invalid graph: %v\n", err)
		os.Exit(1)
	}

	tasks, err := plan.Build(doc, *startNode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d nodes, %d edges, %d planned tasks\n", len(doc.Nodes), len(doc.Edges), len(tasks))
	for i, task := range tasks {
		deps := "-"
		if len(task.DependsOn) > 0 {
			deps = strings.Join(task.DependsOn, ",")
		}
		fmt.Printf("%3d. %-24s %-22s deps=%s\n", i+1, task.NodeID, task.NodeType, deps)
	}
}
