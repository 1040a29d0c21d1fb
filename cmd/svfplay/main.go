package main

import "github.com/svftools/svfplay/cmd/svfplay/cmd"

func main() {
	cmd.Execute()
}
