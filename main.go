package main

import "whisperflow/cli"

var version = "dev"

func run() int {
	cli.SetVersion(version)
	return cli.Execute()
}
