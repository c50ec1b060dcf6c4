package main

import (
	"fmt"
	"io"
	"os"
)

var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintf(stderr, "%s: %v\n", msg, err)
	exit(1)
}
