// Command fyndkarta serves Swedish consumer and public-safety data as a
// JSON API: grocery price search, community giveaway listings, and a set
// of official feed adapters (food recalls, crisis updates, weather
// warnings and observations).
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"fyndkarta/config"
	"fyndkarta/feeds"
	"fyndkarta/fetch"
	"fyndkarta/geo"
	"fyndkarta/listings"
	"fyndkarta/pricesearch"
	"fyndkarta/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := config.AppFromEnv()

	data, err := config.LoadData(app.DataPath)
	if err != nil {
		logger.Error("Failed to load data config", "error", err)
		os.Exit(1)
	}

	if app.MPKKey == "" {
		logger.Info("No MPK_API_KEY set, price search serves fixture data")
	}

	cities := make([]geo.City, 0, len(data.Cities))
	for _, c := range data.Cities {
		cities = append(cities, geo.City{Name: c.Name, Lat: c.Lat, Lng: c.Lng})
	}

	fetcher := fetch.New(logger)

	srv := server.New(&server.Config{
		Price: pricesearch.New(
			pricesearch.NewMPKClient(fetcher, pricesearch.DefaultMPKBaseURL, app.MPKKey, logger),
			pricesearch.NewOFFClient(fetcher, pricesearch.DefaultOFFBaseURL, logger),
			logger),
		Listings: listings.New(
			listings.NewRedditClient(fetcher, listings.DefaultRedditBaseURL, logger),
			geo.NewGazetteer(cities),
			listings.NewTagger(data.TagRules),
			data.Subreddits,
			data.Keywords,
			logger),
		Recalls:  feeds.NewRecallFeed(fetcher, feeds.DefaultRecallBaseURL, logger),
		Crisis:   feeds.NewCrisisFeed(fetcher, feeds.DefaultCrisisBaseURL, logger),
		Warnings: feeds.NewWarningFeed(fetcher, feeds.DefaultWarningsBaseURL, logger),
		FireRisk: feeds.NewFireRiskFeed(fetcher, feeds.DefaultFireRiskBaseURL, logger),
		Temp:     feeds.NewTempFeed(fetcher, feeds.DefaultObsBaseURL, logger),
		Wind:     feeds.NewWindFeed(fetcher, feeds.DefaultObsBaseURL, logger),
		Logger:   logger,
	})

	if err := srv.ListenAndServe(app.Port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
