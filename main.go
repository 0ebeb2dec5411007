package main

import "neardup/cmd"

func main() {
	cmd.Execute()
}
