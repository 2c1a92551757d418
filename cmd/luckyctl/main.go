// luckyctl — клиент Lucky Trip для терминала.
package main

import (
	"os"

	"github.com/bigkaa/luckytrip/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
