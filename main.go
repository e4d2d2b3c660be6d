package main

import "github.com/getantonio/tokenhub/cmd"

func main() {
	cmd.Execute()
}
