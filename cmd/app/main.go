package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"freight-tracker/internal/config"
	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker"
	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: freight-tracker <agent|login|register|logout|freights> [flags]")
	os.Exit(1)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.NewFromYAML(path)
	}
	return config.New()
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "agent":
		agentCmd := flag.NewFlagSet("agent", flag.ExitOnError)
		configPath := agentCmd.String("config", "", "path to YAML config file")
		agentCmd.Parse(os.Args[2:])

		cfg, appLogger := mustSetup(*configPath)
		if err := tracker.Run(ctx, appLogger, cfg); err != nil {
			appLogger.Error("agent stopped", err)
			os.Exit(1)
		}

	case "login":
		loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
		configPath := loginCmd.String("config", "", "path to YAML config file")
		email := loginCmd.String("email", "", "account email")
		password := loginCmd.String("password", "", "account password")
		loginCmd.Parse(os.Args[2:])

		cfg, appLogger := mustSetup(*configPath)
		if err := tracker.Login(ctx, appLogger, cfg, *email, *password); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

	case "register":
		registerCmd := flag.NewFlagSet("register", flag.ExitOnError)
		configPath := registerCmd.String("config", "", "path to YAML config file")
		company := registerCmd.String("company", "", "company name")
		firstName := registerCmd.String("first-name", "", "first name")
		lastName := registerCmd.String("last-name", "", "last name")
		email := registerCmd.String("email", "", "account email")
		password := registerCmd.String("password", "", "account password")
		role := registerCmd.String("role", "driver", "account role (driver|carrier|supplier|warehouse)")
		phone := registerCmd.String("phone", "", "phone number")
		city := registerCmd.String("city", "", "address city")
		zip := registerCmd.String("zip", "", "address zip code")
		street := registerCmd.String("street", "", "address street")
		houseNumber := registerCmd.String("house-number", "", "address house number")
		country := registerCmd.String("country", "DE", "address country")
		agree := registerCmd.Bool("agree", false, "accept the terms of service and privacy policy")
		registerCmd.Parse(os.Args[2:])

		cfg, appLogger := mustSetup(*configPath)
		req := dto.RegisterRequest{
			Company:   *company,
			FirstName: *firstName,
			LastName:  *lastName,
			Email:     *email,
			Password:  *password,
			Role:      model.Role(*role),
			Phone:     *phone,
			Address: model.Address{
				City:        *city,
				Zip:         *zip,
				Street:      *street,
				HouseNumber: *houseNumber,
				Country:     *country,
			},
			AgreedToTerms:   *agree,
			AgreedToPrivacy: *agree,
		}
		if err := tracker.RegisterAccount(ctx, appLogger, cfg, req); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

	case "logout":
		logoutCmd := flag.NewFlagSet("logout", flag.ExitOnError)
		configPath := logoutCmd.String("config", "", "path to YAML config file")
		logoutCmd.Parse(os.Args[2:])

		cfg, appLogger := mustSetup(*configPath)
		if err := tracker.Logout(ctx, appLogger, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

	case "freights":
		freightsCmd := flag.NewFlagSet("freights", flag.ExitOnError)
		configPath := freightsCmd.String("config", "", "path to YAML config file")
		activeOnly := freightsCmd.Bool("active", false, "list only active freights")
		freightsCmd.Parse(os.Args[2:])

		cfg, appLogger := mustSetup(*configPath)
		if err := tracker.ListFreights(ctx, appLogger, cfg, *activeOnly); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

	default:
		usage()
	}
}

func mustSetup(configPath string) (*config.Config, mylogger.Logger) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger, err := mylogger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, appLogger
}
