package main

import "github.com/jmcleod/ironseal/cmd/ironseal/cmd"

func main() {
	cmd.Execute()
}
