package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ironsheep/pgm-tools-mcp/internal/config"
	"github.com/ironsheep/pgm-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("pgm-tools-mcp - MCP server for grayscale raster editing")
	fmt.Println()
	fmt.Println("Usage: pgm-tools-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println("  -config PATH     YAML settings file (default " + config.DefaultPath + " if present)")
	fmt.Println("  -http ADDR       Also serve JSON-RPC and raster downloads over HTTP")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  " + config.EnvLogLevel + "=debug      Enable debug logging")
	fmt.Println("  " + config.EnvHTTP + "=ADDR            Same as -http")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pgm-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	configPath := flag.String("config", "", "YAML settings file")
	httpAddr := flag.String("http", "", "HTTP listen address")
	flag.Usage = usage
	flag.Parse()

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTPListen = *httpAddr
	}

	if cfg.Debug() {
		log.Printf("PGM MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv := server.New(cfg)
	defer srv.Close()

	if cfg.HTTPListen != "" {
		go func() {
			if err := srv.ListenAndServe(cfg.HTTPListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	if err := srv.Run(); err != nil {
		log.Printf("Server error: %v", err)
		srv.Close()
		os.Exit(1)
	}
}
