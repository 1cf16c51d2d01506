package main

import "github.com/lepinkainen/shelfkeeper/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
