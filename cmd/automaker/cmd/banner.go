package cmd

import (
	"fmt"
)

const banner = `
              _                        _
  __ _ _   _| |_ ___  _ __ ___   __ _| | _____ _ __
 / _` + "`" + ` | | | | __/ _ \| '_ ` + "`" + ` _ \ / _` + "`" + ` | |/ / _ \ '__|
| (_| | |_| | || (_) | | | | | | (_| |   <  __/ |
 \__,_|\__,_|\__\___/|_| |_| |_|\__,_|_|\_\___|_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Local Automation Server - Version %s\x1b[0m\n\n", Version)
}
