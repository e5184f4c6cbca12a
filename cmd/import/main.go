// Command symbol-import runs one symbol directory import and prints the summary as JSON.
//
//	symbol-import nasdaq
//	symbol-import sec --env-file ./prod.env
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(runImport, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
