// Command testserver runs an in-memory product API for trying out
// stampede without a real target.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port    Port to listen on (default: 8080)
//	-host    Host to bind to (default: localhost)
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/wrussell84/stampede/internal/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	flag.Parse()

	server := testserver.New()
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("Stampede Product API Test Server")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  POST /products/{id}/details - Create a product (schema-validated)")
	fmt.Println("  GET  /products/{id}         - Fetch a product (404 when absent)")
	fmt.Println()

	log.Fatal(http.ListenAndServe(addr, server.Handler()))
}
