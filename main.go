package main

import "github.com/zipray/zipray/cmd"

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	cmd.Execute(version)
}
