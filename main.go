/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/
package main

import (
	"github.com/jpl-au/spi/cmd"

	// Import plugins - each registers itself via init()
	_ "github.com/jpl-au/spi/plugin/all"
)

func main() {
	cmd.Execute()
}
