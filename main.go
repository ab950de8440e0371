package main

import "github.com/brogergvhs/aktudl/cmd"

func main() {
	cmd.Execute()
}
