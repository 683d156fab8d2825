package main

import "github.com/dounie/opshub/cmd/opshub/cmd"

func main() {
	cmd.Execute()
}
