//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"stock_insight_backend/config"
	"stock_insight_backend/models"
	"stock_insight_backend/services"
)

// seedTickers is the starter universe. The chart and point caches only serve
// tickers present in this table.
var seedTickers = []models.Ticker{
	{TickerCode: "005930", Name: "Samsung Electronics", Market: models.MarketKOSPI},
	{TickerCode: "000660", Name: "SK hynix", Market: models.MarketKOSPI},
	{TickerCode: "035420", Name: "NAVER", Market: models.MarketKOSPI},
	{TickerCode: "005380", Name: "Hyundai Motor", Market: models.MarketKOSPI},
	{TickerCode: "051910", Name: "LG Chem", Market: models.MarketKOSPI},
	{TickerCode: "AAPL", Name: "Apple Inc.", Market: models.MarketUS},
	{TickerCode: "MSFT", Name: "Microsoft Corporation", Market: models.MarketUS},
	{TickerCode: "GOOGL", Name: "Alphabet Inc.", Market: models.MarketUS},
	{TickerCode: "AMZN", Name: "Amazon.com, Inc.", Market: models.MarketUS},
	{TickerCode: "TSLA", Name: "Tesla, Inc.", Market: models.MarketUS},
	{TickerCode: "NVDA", Name: "NVIDIA Corporation", Market: models.MarketUS},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config load issue: %v\n", err)
	}

	db, err := config.InitDB()
	if err != nil {
		fmt.Printf("Database connection failed: %v\n", err)
		os.Exit(1)
	}

	if err := models.Migrate(db); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}

	created := 0
	for _, t := range seedTickers {
		var existing models.Ticker
		err := db.Where("ticker_code = ?", t.TickerCode).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			fmt.Printf("Lookup failed for %s: %v\n", t.TickerCode, err)
			os.Exit(1)
		}
		if err := db.Create(&t).Error; err != nil {
			fmt.Printf("Insert failed for %s: %v\n", t.TickerCode, err)
			os.Exit(1)
		}
		created++
	}
	fmt.Printf("Seeded %d new tickers (%d total in universe)\n", created, len(seedTickers))

	// Mirror the universe into the MongoDB search index when configured
	if cfg.MongoURI == "" {
		fmt.Println("MONGODB_URI not set, skipping search index sync")
		return
	}

	client, err := services.ConnectMongo(cfg.MongoURI)
	if err != nil {
		fmt.Printf("MongoDB connection failed: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer client.Disconnect(ctx)

	coll := client.Database(services.MongoDBName).Collection(services.MongoTickerCollection)
	upsert := options.Update().SetUpsert(true)
	for _, t := range seedTickers {
		filter := bson.M{"ticker_code": t.TickerCode}
		update := bson.M{"$set": bson.M{
			"ticker_code": t.TickerCode,
			"name":        t.Name,
			"market":      t.Market,
		}}
		if _, err := coll.UpdateOne(ctx, filter, update, upsert); err != nil {
			fmt.Printf("Search index sync failed for %s: %v\n", t.TickerCode, err)
			os.Exit(1)
		}
	}
	fmt.Printf("Search index synced with %d tickers\n", len(seedTickers))
}
