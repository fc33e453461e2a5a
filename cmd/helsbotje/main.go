// helsbotje is a terminal client for the HelsBotje GPT gateway.
package main

import (
	"os"
)

func main() {
	rc, _ := run(os.Args[1:], &cliConfig{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Exit:   os.Exit,
	})
	os.Exit(rc)
}
