package main

import "github.com/teampoint/botcore/cmd"

func main() {
	cmd.Run()
}
