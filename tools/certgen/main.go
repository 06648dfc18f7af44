// Package main generates a development CA and a server certificate signed
// by it, for running the API server over HTTPS locally:
//
//	certgen -dir certs -hosts localhost,127.0.0.1
//	server -tls-cert certs/server.crt -tls-key certs/server.key
//	client -a https://localhost:8080 -ca certs/ca.crt
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/realtivo/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := flags.String("dir", "certs", "output directory")
	hosts := flags.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var list []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			list = append(list, h)
		}
	}

	paths, err := certgen.WriteDevCerts(*dir, list, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "CA:          %s\n", paths.CACert)
	fmt.Fprintf(out, "server cert: %s\n", paths.ServerCert)
	fmt.Fprintf(out, "server key:  %s\n", paths.ServerKey)
	return nil
}
