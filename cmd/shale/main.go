package main

import "github.com/marshallshelly/shale-orm/cmd/shale/commands"

func main() {
	commands.Execute()
}
