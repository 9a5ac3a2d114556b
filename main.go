package main

import "github.com/KaramelBytes/winequality-cli/cmd"

func main() {
	cmd.Execute()
}
