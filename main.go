package main

import "github.com/meetsight/attendance/cmd"

func main() {
	cmd.Execute()
}
