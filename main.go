package main

import "github.com/alexiusacademia/gosewer/cmd"

func main() {
	cmd.Execute()
}
