// cmd/tools/catalog-updater/main.go
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"api-insights/internal/catalog"
)

var catalogPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Tool ID (e.g., error-data)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Error Data)")
	description := addCmd.String("description", "", "Description shown to the selection collaborator")
	enabled := addCmd.Bool("enabled", true, "Whether the tool is selectable")
	addCmd.StringVar(&catalogPath, "path", "configs/tool_catalog.json", "Path to catalog file")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Tool ID to update")
	field := updateCmd.String("field", "", "Field to update (displayName, description, enabled)")
	value := updateCmd.String("value", "", "New value for the field")
	updateCmd.StringVar(&catalogPath, "path", "configs/tool_catalog.json", "Path to catalog file")

	// Validate command flags
	validateCmd.StringVar(&catalogPath, "path", "configs/tool_catalog.json", "Path to catalog file")

	// Seed command flags
	dsn := seedCmd.String("dsn", "", "Postgres DSN for the tool_catalog table")
	seedCmd.StringVar(&catalogPath, "path", "configs/tool_catalog.json", "Path to catalog file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" {
			fmt.Println("Error: id, displayName and description are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		entry := catalog.Entry{
			ID:          *idAdd,
			DisplayName: *displayName,
			Description: *description,
			Enabled:     *enabled,
		}
		if err := addTool(entry); err != nil {
			fmt.Printf("Error adding tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added tool: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTool(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated tool %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		doc, err := catalog.LoadDocument(catalogPath)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		if err := doc.Validate(); err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d tools.\n", len(doc.Tools))

	case "seed":
		seedCmd.Parse(os.Args[2:])
		if *dsn == "" {
			fmt.Println("Error: dsn is required for seed.")
			seedCmd.Usage()
			os.Exit(1)
		}
		if err := seedDatabase(*dsn); err != nil {
			fmt.Printf("Error seeding catalog table: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Catalog table seeded.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func addTool(entry catalog.Entry) error {
	doc, err := catalog.LoadDocument(catalogPath)
	if err != nil {
		// If file doesn't exist, start a fresh catalog
		if os.IsNotExist(err) {
			doc = &catalog.Document{Version: "1.0.0"}
		} else {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	for _, existing := range doc.Tools {
		if existing.ID == entry.ID {
			return fmt.Errorf("tool with ID %s already exists", entry.ID)
		}
	}

	doc.Tools = append(doc.Tools, entry)
	doc.LastUpdated = time.Now().Format(time.RFC3339)
	return doc.Save(catalogPath)
}

func updateTool(id, field, value string) error {
	doc, err := catalog.LoadDocument(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	found := false
	for i := range doc.Tools {
		if doc.Tools[i].ID != id {
			continue
		}
		found = true
		switch field {
		case "displayName":
			doc.Tools[i].DisplayName = value
		case "description":
			doc.Tools[i].Description = value
		case "enabled":
			doc.Tools[i].Enabled = value == "true"
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("tool with ID %s not found", id)
	}

	doc.LastUpdated = time.Now().Format(time.RFC3339)
	return doc.Save(catalogPath)
}

// seedDatabase upserts the file catalog into the tool_catalog table so a
// Postgres-backed deployment starts from the bundled defaults.
func seedDatabase(dsn string) error {
	doc, err := catalog.LoadDocument(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_catalog (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			description  TEXT NOT NULL,
			enabled      BOOLEAN NOT NULL DEFAULT TRUE
		)`)
	if err != nil {
		return fmt.Errorf("failed to create tool_catalog: %w", err)
	}

	for _, tool := range doc.Tools {
		_, err = db.Exec(`
			INSERT INTO tool_catalog (id, display_name, description, enabled)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				description  = EXCLUDED.description,
				enabled      = EXCLUDED.enabled`,
			tool.ID, tool.DisplayName, tool.Description, tool.Enabled)
		if err != nil {
			return fmt.Errorf("failed to upsert tool %s: %w", tool.ID, err)
		}
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: catalog-updater <command> [flags]

Commands:
  add      Add a new tool to the catalog file
  update   Update an existing tool's field
  validate Validate the catalog file
  seed     Upsert the catalog file into the tool_catalog Postgres table
  help     Show this help message

Examples:
  catalog-updater add -id error-data -displayName "Error Data" -description "Per-window API error rows"
  catalog-updater update -id error-data -field enabled -value false
  catalog-updater validate -path configs/tool_catalog.json
  catalog-updater seed -dsn "host=localhost user=postgres dbname=api_insights sslmode=disable"

Use 'catalog-updater <command> -h' for more information about a command.
`)
}
