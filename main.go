package main

import "github.com/icco/padcomposer/cmd"

func main() {
	cmd.Execute()
}
