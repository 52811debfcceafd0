// Package main is the entry point for the dirsync binary.
package main

import "os"

func main() {
	os.Exit(execute())
}
