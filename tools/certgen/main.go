// Package main generates a development CA and a TLS server certificate
// for the task API, writing them under the "certs" directory.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/GophTodo/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			list = append(list, h)
		}
	}
	if err := certgen.WriteBundle(*dir, list); err != nil {
		return err
	}

	fmt.Fprintf(out, "Certificates generated into %s\n", *dir)
	fmt.Fprintf(out, "  server: -cert %s/%s -key %s/%s\n", *dir, certgen.ServerCertFile, *dir, certgen.ServerKeyFile)
	fmt.Fprintf(out, "  client: -ca %s/%s\n", *dir, certgen.CACertFile)
	return nil
}
