package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/arborvc/arbor/internal/types"
)

// printConflictReport renders a merge's residual ConflictReport as
// human-readable YAML unless --json asked for the machine-readable form,
// which printJSON already produces.
func printConflictReport(report *types.ConflictReport) {
	if printJSON(report) {
		return
	}
	out, err := yaml.Marshal(report)
	if err != nil {
		fmt.Printf("conflict report: %v\n", report)
		return
	}
	fmt.Print(string(out))
}
