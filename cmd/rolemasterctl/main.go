package main

import (
	"fmt"
	"os"

	"github.com/akumi07/RoleMaster21/cmd/rolemasterctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
