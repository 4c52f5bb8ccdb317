package main

import "github.com/maastricht-university/edmo-affect/cmd"

func main() {
	cmd.Execute()
}
