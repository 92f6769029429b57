package main

import "github.com/murmurlabs/murmur/cmd/murmur/cli"

func main() {
	cli.Execute()
}
