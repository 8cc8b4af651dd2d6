package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	datastorepg "github.com/frahmantamala/vuln-management/internal/datastore/postgres"
	"github.com/frahmantamala/vuln-management/internal/system"
	"github.com/frahmantamala/vuln-management/internal/user"
	"github.com/frahmantamala/vuln-management/pkg/logger"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initGorm(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		lg := logger.LoggerWrapper()
		ctx := context.Background()
		store := datastorepg.NewRecordStore(db)
		userRepo := user.NewDatastoreRepository(store)
		systemService := system.NewService(system.NewDatastoreRepository(store), nil, lg)

		seedUsers := []struct {
			Email string
			Name  string
		}{
			{"owner@example.com", "Demo Owner"},
			{"reporter@example.com", "Demo Reporter"},
			{"viewer@example.com", "Demo Viewer"},
		}

		now := time.Now()
		for _, su := range seedUsers {
			existing, err := userRepo.GetByEmail(ctx, su.Email)
			if err != nil {
				log.Fatalf("failed to look up user %s: %v", su.Email, err)
			}
			if existing != nil {
				fmt.Println("user already exists:", su.Email)
				continue
			}
			record := &user.User{
				Email:        su.Email,
				Name:         su.Name,
				LastLogin:    now,
				Registration: now,
			}
			if err := userRepo.Save(ctx, record); err != nil {
				log.Fatalf("failed to seed user %s: %v", su.Email, err)
			}
			fmt.Println("Seeded user:", su.Email)
		}

		systemName := "demo-system"
		_, err = systemService.CreateSystem(ctx, systemName, "demo system for local development", "owner@example.com")
		switch {
		case err == nil:
			fmt.Println("Seeded system:", systemName)
		case errors.Is(err, internal.ErrSystemAlreadyExists):
			fmt.Println("system already exists:", systemName)
		default:
			log.Fatalf("failed to seed system: %v", err)
		}

		memberships := []struct {
			Email string
			Role  system.Role
		}{
			{"reporter@example.com", system.RoleReporter},
			{"viewer@example.com", system.RoleViewer},
		}
		for _, m := range memberships {
			_, err := systemService.AddUser(ctx, systemName, m.Email, m.Role, "owner@example.com")
			switch {
			case err == nil:
				fmt.Printf("Granted %s to %s\n", m.Role, m.Email)
			case errors.Is(err, internal.ErrSystemUserAlreadyExists):
				fmt.Println("membership already exists:", m.Email)
			default:
				log.Fatalf("failed to grant %s to %s: %v", m.Role, m.Email, err)
			}
		}

		fmt.Println("Seed data loaded")
	},
}
