package main

import "github.com/brogergvhs/tachi/cmd"

func main() {
	cmd.Execute()
}
