package main

import "github.com/morganney/vite-plugin-specifier/cmd"

func main() {
	cmd.Execute()
}
