package main

import "github.com/bryanchriswhite/hyprdock/cmd/hyprdock/commands"

func main() {
	commands.Execute()
}
