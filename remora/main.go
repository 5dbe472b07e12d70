package main

import (
	"github.com/remora-dl/remora/remora/cmd"
	"github.com/remora-dl/remora/utils/log"
)

func main() {
	flags := cmd.ParseFlags()
	if err := cmd.Run(flags); err != nil {
		log.Fatalf("Download failed: %s", err)
	}
}
