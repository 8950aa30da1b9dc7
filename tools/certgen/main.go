// Package main generates a development CA and a server certificate for
// the web front end, writing them under a directory ("certs" by default).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/gophtodo/internal/certgen"
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
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs of the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			list = append(list, h)
		}
	}

	files, err := certgen.WriteDevCertificates(*dir, list)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "certificates written: %s, %s (CA %s)\n", files.ServerCert, files.ServerKey, files.CACert)
	return nil
}
