// The main package for the webcrawler executable.
package main

import (
	"github.com/pricefeed/webcrawler/cmd"
)

func main() {
	cmd.Execute()
}
