package shura

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

var interactiveMu sync.Mutex

// askForConfirmation prompts the user with a [Y/n] question and returns the answer.
// An empty response counts as yes.
func askForConfirmation(p colorPrinter, format string, a ...any) bool {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()

	reader := bufio.NewReader(os.Stdin)
	fullPrompt := fmt.Sprintf("%s [Y/n]: ", fmt.Sprintf(format, a...))

	for {
		cPrintf(p, "%s", fullPrompt)
		response, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(response)) {
		case "", "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}
