package main

import "github.com/KaramelBytes/tripmerge-cli/cmd"

func main() {
	cmd.Execute()
}
