// Command unionfuse mounts a union of backing directories at a single
// mount point and, separately, lets a running mount's configuration be
// queried or changed through its control plane.
package main

import (
	"fmt"
	"os"

	"github.com/unionfuse/unionfuse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
