package main

import (
	"fmt"
	"os"

	"github.com/labstack/gommon/log"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger := log.New("postpdf")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(logger)
	case "generate":
		err = runGenerate(logger, os.Args[2:])
	case "engines":
		runEngines()
	case "version":
		fmt.Printf("postpdf %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`postpdf - serve articles and turn them into PDF documents

Usage:
  postpdf <command> [arguments]

Commands:
  serve                      Start the web server
  generate -id <n> [flags]   Render one published post to PDF
  engines                    List available rendering engines
  version                    Print the postpdf version
  help                       Show this help message

Environment:
  SITE_NAME, SITE_URL, ADDR, ADMIN_PASSWORD, SESSION_SECRET, NONCE_SECRET,
  DATABASE_PATH, UPLOADS_DIR, COOKIE_SECURE, PDF_ENGINE,
  PDF_TIMESTAMP_FILENAMES, PDF_FONT_FILE, CHROME_PATH, CHROME_AUTO_DOWNLOAD,
  CHROME_NO_SANDBOX, GCS_BUCKET, GCS_PREFIX, GCS_BASE_URL,
  FIRESTORE_PROJECT, FIRESTORE_COLLECTION

Examples:
  postpdf serve
  postpdf generate -id 42
  postpdf generate -id 42 -o hello.pdf -set font_size=12 -set engine=chrome`)
}
