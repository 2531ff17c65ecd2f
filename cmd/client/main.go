package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Base URL of the docquery server")
	collection := flag.String("c", "", "Collection to use on start")
	flag.Parse()

	client := newAPIClient(*addr, &http.Client{Timeout: 30 * time.Second})
	c := newCLI(client)
	c.currentCollection = *collection

	if err := c.run(); err != nil {
		fmt.Fprintln(os.Stderr, colorErr("Fatal: ", err))
		os.Exit(1)
	}
}
