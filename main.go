package main

import "github.com/pulse-tools/gh-pulse/internal/cli"

func main() {
	cli.Execute()
}
