package main

import (
	"io"

	"github.com/fatih/color"
)

// Status lines go to stderr so stdout stays clean for ls and get.
var statusOut io.Writer = color.Error

func printInfo(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(statusOut, "[*] "+format+"\n", args...)
}

func printSuccess(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(statusOut, "[+] "+format+"\n", args...)
}

func printWarning(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(statusOut, "[!] "+format+"\n", args...)
}

func printError(format string, args ...any) {
	color.New(color.FgRed).Fprintf(statusOut, "[-] "+format+"\n", args...)
}
