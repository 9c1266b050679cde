package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "-h", "--help", "help":
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin db [-data dir | -db path] [sessions|claims|scores] ...")
	fmt.Fprintln(os.Stderr, "       admin state [-url http://127.0.0.1:8080]")
	os.Exit(2)
}
