package main

import "github.com/isdelr/creatives/internal/cli"

func main() {
	cli.Execute()
}
