package main

import (
	"os"

	"ec2ctl/pkg/logging"
)

func main() {
	err := Execute()
	logging.CloseLogger()
	if err != nil {
		os.Exit(1)
	}
}
