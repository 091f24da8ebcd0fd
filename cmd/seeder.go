package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo vessel crew, categories and an opening cash float.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"audit_logs", "cash_transactions", "receipts", "expenses", "categories", "users"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		const vesselID = 1

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		crew := []struct {
			Email  string
			Name   string
			Role   string
			Grants string
		}{
			{"captain@harborops.dev", "Mira Castellane", "CAPTAIN", ""},
			{"purser@harborops.dev", "Jonas Eriksen", "OFFICER", "expenses:approve,cash:manage"},
			{"deckhand@harborops.dev", "Tom Okafor", "CREW", ""},
		}

		for _, c := range crew {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM users WHERE email = $1", c.Email).Scan(&exists); err == nil {
				fmt.Println("user already exists:", c.Email)
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO users (vessel_id, email, name, password_hash, role, grants, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())",
				vesselID, c.Email, c.Name, string(hash), c.Role, c.Grants,
			); err != nil {
				log.Fatalf("failed to insert user %s: %v", c.Email, err)
			}
			fmt.Println("Seeded user:", c.Email)
		}

		categories := []struct {
			Name string
			Desc string
		}{
			{"Fuel", "Fuel and lubricants"},
			{"Dockage", "Berthing and harbor fees"},
			{"Provisioning", "Food and galley supplies"},
			{"Maintenance", "Repairs, parts and yard work"},
			{"Crew", "Crew welfare and travel"},
			{"Miscellaneous", "Everything else"},
		}

		for _, c := range categories {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM categories WHERE vessel_id = $1 AND name = $2", vesselID, c.Name).Scan(&exists); err == nil {
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO categories (vessel_id, name, description, is_active, created_at, updated_at) VALUES ($1, $2, $3, true, now(), now())",
				vesselID, c.Name, c.Desc,
			); err != nil {
				log.Fatalf("failed to insert category %s: %v", c.Name, err)
			}
			fmt.Printf("Seeded category: %s\n", c.Name)
		}

		var captainID int64
		if err := db.QueryRow("SELECT id FROM users WHERE email = $1", "captain@harborops.dev").Scan(&captainID); err != nil {
			log.Fatalf("failed to lookup captain id: %v", err)
		}

		var deposits int
		if err := db.QueryRow("SELECT COUNT(1) FROM cash_transactions WHERE vessel_id = $1", vesselID).Scan(&deposits); err != nil {
			log.Fatalf("failed to count cash transactions: %v", err)
		}
		if deposits == 0 {
			if _, err := db.Exec(
				"INSERT INTO cash_transactions (vessel_id, type, amount, currency, description, created_by_id, created_at) VALUES ($1, 'DEPOSIT', 10000, 'EUR', 'Opening cash float', $2, now())",
				vesselID, captainID,
			); err != nil {
				log.Fatalf("failed to insert opening deposit: %v", err)
			}
			fmt.Println("Seeded opening cash float: 10000 EUR")
		}

		fmt.Println("Seeding complete")
	},
}
