package main

import "github.com/nextlevelbuilder/tickforge/cmd"

func main() {
	cmd.Execute()
}
