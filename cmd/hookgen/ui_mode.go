package main

import (
	"fmt"
	"strings"
)

// uiMode selects the progress display of hookgen generate.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.TrimSpace(strings.ToLower(value))); mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	default:
		return "", fmt.Errorf("--ui: unknown progress display %q, use auto, on or off", value)
	}
}

// useProgressUI decides whether generate draws the interactive progress
// view. --quiet always wins; auto needs a terminal that can redraw.
func useProgressUI(mode uiMode, tty, quiet bool, termName string) bool {
	if quiet {
		return false
	}
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return tty && termName != "dumb"
	}
}
