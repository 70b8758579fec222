package main

import "github.com/frahmantamala/report-management/cmd"

func main() {
	cmd.Execute()
}
