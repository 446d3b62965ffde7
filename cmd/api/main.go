package main

import (
	"fmt"
	"os"

	"github.com/PauloHFS/alm-rag/internal/cmd"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	if len(os.Args) < 2 {
		cmd.RunServer()
		return
	}

	switch os.Args[1] {
	case "server":
		cmd.RunServer()
	case "migrate":
		cmd.RunMigrate()
	case "seed":
		cmd.RunSeed()
	case "ingest":
		cmd.RunIngest()
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("ALM RAG - Single Binary Console")
	fmt.Println("Usage: ./alm-rag [command] [args]")
	fmt.Println("\nAvailable commands:")
	fmt.Println("  server   Start the API server (default)")
	fmt.Println("  migrate  Run database migrations")
	fmt.Println("  seed     Run migrations and seed synthetic embeddings")
	fmt.Println("  ingest   Embed a YAML knowledge base (args: <file.yaml>)")
	fmt.Println("  help     Show this help message")
}
