package main

import "github.com/mcoot/pinauthority/internal/cli"

func main() {
	cli.Execute()
}
