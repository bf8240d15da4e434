// Command commy-example is a runnable demonstration of the Commy client
// SDK: connect, authenticate, create a service, read/write a variable, and
// watch for local changes to it.
package main

import (
	"os"

	"github.com/ciresnave/commy-go/cmd/commy-example/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
