// irlog - IRLogger capture and parsing tool
//
// irlog reads the log stream an IR camera SDK's IRLogger writes to a FIFO or
// file and prints it as structured records, reporting malformed lines and
// buffer overflows along the way.
package main

import (
	"os"

	"github.com/ccollicutt/irlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
