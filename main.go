package main

import "github.com/agentic-research/rollcall/cmd"

func main() {
	cmd.Execute()
}
