package main

import (
	"fmt"
	"os"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment"
)

func main() {
	if err := assessment.Command().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
