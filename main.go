package main

import "github.com/scienceol/screenwake/cmd"

func main() {
	cmd.Execute()
}
