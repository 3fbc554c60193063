package main

import (
	"foodgram/cmd/config"
	migration "foodgram/cmd/database/migrate"
	"foodgram/internal/utils"

	"github.com/gofiber/fiber/v2/log"
)

func main() {
	utils.LoadConfig()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}

	if err := migration.Migrate(db); err != nil {
		log.Fatalf("error migrating database: %v", err)
	}

	app, err := config.NewApp(db)
	if err != nil {
		log.Fatalf("error creating app: %v", err)
	}

	port := utils.GetConfig("APP_PORT")
	if port == "" {
		port = "8080"
	}

	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
