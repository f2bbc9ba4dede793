package main

import "github.com/cybersectk/cstk/cmd"

func main() {
	cmd.Execute()
}
