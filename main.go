package main

import (
	"context"
	"fmt"
	"os"

	"content-scheduler/bootstrap"
)

func main() {
	if err := bootstrap.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "content-scheduler: %v\n", err)
		os.Exit(1)
	}
}
