package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// promptUser asks the user to pick one of the suggested answers, or to type
// one in. The first suggestion is picked if the user just presses enter.
// The same reader must be used for consecutive prompts since it buffers
// input.
func promptUser(reader *bufio.Reader, helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Separate the prompts with a blank line.
	defer fmt.Fprintln(stdout)

	var options []string
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option += " (recommended)"
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := reader.ReadString('\n')
			if err != nil {
				return "", err
			}

			choice := 1
			if choiceStr = strings.TrimRight(choiceStr, "\r\n"); choiceStr != "" {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}
			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(resp, "\r\n"), nil
}
