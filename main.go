// The main package for the alexandria executable.
package main

import (
	"github.com/JakeFAU/alexandria/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
