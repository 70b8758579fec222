package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/report-management/internal/role"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the role catalog and an initial admin",
	Long:  `Install the fixed role catalog, a root department and an initial admin account for development and first deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initGormDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			tables := []string{"audit_log", "report_comments", "report_approvals", "reports", "user_roles", "users", "departments"}
			for _, t := range tables {
				if err := db.Exec("DELETE FROM " + t).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", t, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		for _, r := range role.DefaultCatalog() {
			flags, err := json.Marshal(r.Permissions)
			if err != nil {
				log.Fatalf("failed to encode permissions for role %s: %v", r.Name, err)
			}

			var exists int
			row := db.Raw("SELECT 1 FROM roles WHERE name = ?", r.Name).Row()
			if err := row.Scan(&exists); err == nil {
				if err := db.Exec("UPDATE roles SET display_name = ?, level = ?, permissions = ? WHERE name = ?", r.DisplayName, r.Level, string(flags), r.Name).Error; err != nil {
					log.Fatalf("failed to update role %s: %v", r.Name, err)
				}
				continue
			}

			if err := db.Exec("INSERT INTO roles (name, display_name, level, permissions, created_at) VALUES (?, ?, ?, ?, now())", r.Name, r.DisplayName, r.Level, string(flags)).Error; err != nil {
				log.Fatalf("failed to insert role %s: %v", r.Name, err)
			}
			fmt.Println("Seeded role:", r.Name)
		}

		rootDeptName := "Head Office"
		var rootDeptID int64
		if err := db.Raw("SELECT id FROM departments WHERE parent_department_id IS NULL AND name = ?", rootDeptName).Row().Scan(&rootDeptID); err != nil {
			if err := db.Exec("INSERT INTO departments (name, name_en, parent_department_id, is_active, created_at, updated_at) VALUES (?, ?, NULL, true, now(), now())", rootDeptName, rootDeptName).Error; err != nil {
				log.Fatalf("failed to insert root department: %v", err)
			}
			if err := db.Raw("SELECT id FROM departments WHERE parent_department_id IS NULL AND name = ?", rootDeptName).Row().Scan(&rootDeptID); err != nil {
				log.Fatalf("failed to lookup root department id: %v", err)
			}
			fmt.Println("Seeded root department:", rootDeptName)
		}

		// Chat platform ids are external, so the initial admin id comes from the
		// environment rather than a sequence.
		adminID := int64(1)
		if raw := os.Getenv("SEED_ADMIN_CHAT_ID"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				log.Fatalf("invalid SEED_ADMIN_CHAT_ID: %v", err)
			}
			adminID = parsed
		}

		adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
		if adminEmail == "" {
			adminEmail = "admin@mail.com"
		}
		adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
		if adminPassword == "" {
			adminPassword = "password"
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)

		var exists int
		if err := db.Raw("SELECT 1 FROM users WHERE id = ?", adminID).Row().Scan(&exists); err != nil {
			if err := db.Exec("INSERT INTO users (id, username, first_name, email, password_hash, is_active, created_at, updated_at) VALUES (?, 'admin', 'Admin', ?, ?, true, now(), now())", adminID, adminEmail, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert admin user: %v", err)
			}
			fmt.Println("Seeded admin user:", adminEmail)
		} else {
			if err := db.Exec("UPDATE users SET email = ?, password_hash = ?, is_active = true, updated_at = now() WHERE id = ?", adminEmail, string(hash), adminID).Error; err != nil {
				log.Fatalf("failed to update admin user: %v", err)
			}
			fmt.Println("Admin user already exists; refreshed credentials")
		}

		var adminRoleID int64
		if err := db.Raw("SELECT id FROM roles WHERE name = ?", role.RoleAdmin).Row().Scan(&adminRoleID); err != nil {
			log.Fatalf("admin role not found after seeding: %v", err)
		}

		if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", adminID, adminRoleID).Row().Scan(&exists); err != nil {
			if err := db.Exec("INSERT INTO user_roles (user_id, role_id, department_id, assigned_by, is_primary, is_active, assigned_at) VALUES (?, ?, NULL, NULL, true, true, now())", adminID, adminRoleID).Error; err != nil {
				log.Fatalf("failed to assign admin role: %v", err)
			}
			fmt.Println("Assigned admin role to initial admin")
		}

		fmt.Println("Seeding completed successfully")
	},
}
