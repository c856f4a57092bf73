package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taiga-shiokawa/miyakobook/src/connections"
	"github.com/taiga-shiokawa/miyakobook/src/controllers"
	"github.com/taiga-shiokawa/miyakobook/src/engagement"
	"github.com/taiga-shiokawa/miyakobook/src/fanout"
	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/middleware"
	"github.com/taiga-shiokawa/miyakobook/src/routes"
	"github.com/taiga-shiokawa/miyakobook/src/store"
	"github.com/taiga-shiokawa/miyakobook/src/views"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := lib.LoadConfig()

	client, db, err := lib.ConnectDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	if err := store.EnsureIndexes(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	posts := store.NewPostStore(db)
	users := store.NewUserStore(db)
	requests := store.NewConnectionStore(db)
	notifications := store.NewNotificationStore(db)
	news := store.NewNewsStore(client, db)

	sideEffects := fanout.New(notifications, fanout.LogMessenger{})
	defer sideEffects.Wait()

	engagementSvc := engagement.NewService(posts, users, sideEffects)
	connectionSvc := connections.NewService(requests, users, sideEffects)
	viewSvc := views.NewService(news)

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.ClientURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	protect := middleware.ProtectRoute(users, cfg.JWTSecret)

	routes.PostRoutes(app, controllers.NewPostController(engagementSvc, posts, users), protect)
	routes.ConnectionRoutes(app, controllers.NewConnectionController(connectionSvc, users), protect)
	routes.NotificationRoutes(app, controllers.NewNotificationController(notifications, users, posts), protect)
	routes.NewsRoutes(app, controllers.NewNewsController(news, viewSvc, cfg.JWTSecret), protect)

	log.Info().Str("port", cfg.Port).Msg("server is running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
