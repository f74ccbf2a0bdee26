package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type (
	confirmAction interface {
		action() string
	}
	command string
)

func (a command) action() string {
	return "warpstream " + string(a)
}

// confirm asks before a destructive command. force skips the prompt.
func confirm(c confirmAction, force ...bool) bool {
	if len(force) != 0 && force[0] {
		return true
	}
	return confirmFrom(os.Stdin, c)
}

func confirmFrom(r io.Reader, c confirmAction) bool {
	fmt.Printf("Run %q? [y/N]: ", c.action())
	line, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	fmt.Printf("%s: nothing changed\n", c.action())
	return false
}
