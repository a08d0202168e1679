// Command bookcrew queries the book catalog from the terminal, using the same
// search, ranking and rail logic as the API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
