package services

import (
	"context"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"stock_insight_backend/models"
)

// Mongo search index names
const (
	MongoDBName           = "stock_insight"
	MongoTickerCollection = "tickers"
)

// searchLimit caps autocomplete results.
const searchLimit = 10

// TickerHit is one autocomplete match.
type TickerHit struct {
	TickerCode string `json:"ticker_code" bson:"ticker_code"`
	Name       string `json:"name" bson:"name"`
	Market     string `json:"market" bson:"market"`
}

// SearchService answers ticker autocomplete queries. It prefers the MongoDB
// search index and falls back to the relational store when Mongo is not
// configured or unreachable.
type SearchService struct {
	db      *gorm.DB
	tickers *mongo.Collection
}

// NewSearchService creates a search service. mongoClient may be nil.
func NewSearchService(db *gorm.DB, mongoClient *mongo.Client) *SearchService {
	s := &SearchService{db: db}
	if mongoClient != nil {
		s.tickers = mongoClient.Database(MongoDBName).Collection(MongoTickerCollection)
	}
	return s
}

// ConnectMongo establishes the MongoDB connection for the search index.
// An empty URI disables Mongo and is not an error.
func ConnectMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		log.Info("MONGODB_URI not set, ticker search served from Postgres")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetConnectTimeout(30 * time.Second).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	log.Info("MongoDB search index connected")
	return client, nil
}

// Search returns up to searchLimit tickers whose code or name contains q,
// case-insensitively.
func (s *SearchService) Search(ctx context.Context, q string) []TickerHit {
	if s.tickers != nil {
		hits, err := s.searchMongo(ctx, q)
		if err == nil {
			return hits
		}
		log.Warnf("mongo ticker search failed, falling back to SQL: %v", err)
	}
	return s.searchSQL(ctx, q)
}

func (s *SearchService) searchMongo(ctx context.Context, q string) ([]TickerHit, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	filter := bson.M{"$or": []bson.M{
		{"ticker_code": pattern},
		{"name": pattern},
	}}

	opts := options.Find().
		SetLimit(searchLimit).
		SetProjection(bson.M{"_id": 0})

	cursor, err := s.tickers.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	hits := []TickerHit{}
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (s *SearchService) searchSQL(ctx context.Context, q string) []TickerHit {
	pattern := "%" + q + "%"

	var tickers []models.Ticker
	err := s.db.WithContext(ctx).
		Where("LOWER(ticker_code) LIKE LOWER(?) OR LOWER(name) LIKE LOWER(?)", pattern, pattern).
		Limit(searchLimit).
		Find(&tickers).Error
	if err != nil {
		log.Errorf("ticker search failed: %v", err)
		return []TickerHit{}
	}

	hits := make([]TickerHit, 0, len(tickers))
	for _, t := range tickers {
		hits = append(hits, TickerHit{TickerCode: t.TickerCode, Name: t.Name, Market: t.Market})
	}
	return hits
}
