package main

import "github.com/sessionflow/sessionflow/cmd"

func main() {
	cmd.Execute()
}
