package main

import "github.com/NomadicDaddy/automaker/cmd/automaker/cmd"

func main() {
	cmd.Execute()
}
