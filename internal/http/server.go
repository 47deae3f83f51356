// Package httpapi exposes the ride matching engine over HTTP: ride
// posting and search, route quotes, pricing, and a websocket feed of
// newly posted listings.
package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ongopool/internal/config"
	"github.com/example/ongopool/internal/ingest"
	"github.com/example/ongopool/internal/logging"
	"github.com/example/ongopool/internal/notify"
	"github.com/example/ongopool/internal/route"
	"github.com/example/ongopool/internal/search"
	"github.com/example/ongopool/internal/storage"
)

type Server struct {
	cfg      config.ServerConfig
	logger   *slog.Logger
	store    storage.ListingStore
	snapshot storage.SnapshotStore
	resolver *route.Resolver
	matcher  *search.Matcher
	producer *ingest.ListingProducer
	wsreg    *notify.WSRegistry
	mux      *mux.Router
}

// NewServer wires the engine from config: Postgres when PG_DSN is set
// with an in-memory store otherwise, Redis snapshot and geocode cache
// when REDIS_ADDR is set, Kafka when brokers are configured.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var store storage.ListingStore
	var snapshot storage.SnapshotStore

	mem := storage.NewMemoryListingStore()
	store = mem
	snapshot = mem
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresListingStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, using in-memory store", "error", err)
		}
	}

	var geocodeCache route.GeocodeCache = route.NewMemoryGeocodeCache(cfg.GeocodeCacheTTL)
	if cfg.RedisAddr != "" {
		snapshot = storage.NewRedisListingCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisListingKey)
		geocodeCache = route.NewRedisGeocodeCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoPrefix, cfg.GeocodeCacheTTL)
	}

	geocoder := &route.Geocoder{
		Remote: route.NewNominatimClient(cfg.NominatimURL, cfg.GeocodeCountry),
		Cache:  geocodeCache,
		Logger: logging.ForComponent(logger, "geocoder"),
	}
	resolver := &route.Resolver{
		Geocoder:  geocoder,
		Router:    route.NewOSRMClient(cfg.OSRMURL),
		StopDelay: cfg.GeocodeThrottle,
		Logger:    logging.ForComponent(logger, "resolver"),
	}
	matcher := &search.Matcher{
		Store:    store,
		Snapshot: snapshot,
		Geocoder: geocoder,
		RadiusKm: cfg.SearchRadiusKm,
		Logger:   logging.ForComponent(logger, "search"),
	}

	var producer *ingest.ListingProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewListingProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		snapshot: snapshot,
		resolver: resolver,
		matcher:  matcher,
		producer: producer,
		wsreg:    notify.NewWSRegistry(logging.ForComponent(logger, "notify")),
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides", s.handlePostRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/search", s.handleSearchRides).Methods("GET")
	s.mux.HandleFunc("/api/v1/routes/quote", s.handleRouteQuote).Methods("POST")
	s.mux.HandleFunc("/api/v1/pricing/range", s.handlePriceRange).Methods("GET")
	s.mux.HandleFunc("/api/v1/pricing/tiers", s.handleTierQuote).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{user_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Close releases long-lived connections held by the server.
func (s *Server) Close() {
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			s.logger.Warn("closing kafka producer", "error", err)
		}
	}
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
