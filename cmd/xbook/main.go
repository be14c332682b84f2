package main

import "github.com/example/xbook/cmd"

func main() {
	cmd.Execute()
}
