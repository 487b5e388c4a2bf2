// Package main is the entry point of xdbgeo, a tool that resolves IPv4
// addresses into regions using an xdb database.
package main

import "github.com/AdguardTeam/xdbgeo/internal/cmd"

func main() {
	cmd.Main()
}
