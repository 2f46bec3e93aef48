package main

import "github.com/Daskott/phonebook/cmd"

func main() {
	cmd.Execute()
}
