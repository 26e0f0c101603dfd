// Command create-admin creates an admin account, or promotes and
// reactivates an existing one with the same username.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/service"
	"github.com/iliyamo/movie-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	var in service.RegisterInput
	flag.StringVar(&in.Username, "username", "", "admin username (required)")
	flag.StringVar(&in.Email, "email", "", "admin email (required)")
	flag.StringVar(&in.Password, "password", "", "admin password (required)")
	flag.StringVar(&in.FullName, "name", "", "full name")
	flag.Parse()

	if err := utils.NewValidator().Struct(in); err != nil {
		fmt.Fprintln(os.Stderr, utils.DescribeValidation(err))
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			logrus.WithError(err).Fatal("migrate database")
		}
	}

	auth := service.NewAuthService(repository.NewUserRepo(db), cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, nil)
	u, created, err := auth.EnsureAdmin(ctx, in)
	if err != nil {
		logrus.WithError(err).Fatal("create admin")
	}
	if created {
		fmt.Printf("created admin %q (id %d)\n", u.Username, u.ID)
	} else {
		fmt.Printf("promoted %q (id %d) to admin\n", u.Username, u.ID)
	}
}
