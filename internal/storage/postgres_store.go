package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ongopool/internal/models"
)

// PostgresListingStore implements ListingStore over a listings table.
type PostgresListingStore struct {
	db *sql.DB
}

func NewPostgresListingStore(dsn string) (*PostgresListingStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresListingStore{db: db}, nil
}

func (p *PostgresListingStore) QueryAvailableListings(ctx context.Context, f ListingFilters) ([]models.ListingRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, driver_id,
		       pickup_address, pickup_lat, pickup_lng,
		       destination_address, destination_lat, destination_lng,
		       stops, departure_date, departure_time,
		       available_seats, price_per_seat, status
		FROM listings
		WHERE status = 'available'
		  AND ($1 = '' OR departure_date = $1)
		  AND available_seats >= $2
		ORDER BY departure_date, departure_time`,
		f.Date, f.MinSeats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ListingRecord
	for rows.Next() {
		var (
			rec      models.ListingRecord
			pLat     sql.NullFloat64
			pLng     sql.NullFloat64
			dLat     sql.NullFloat64
			dLng     sql.NullFloat64
			seats    sql.NullInt64
			price    sql.NullFloat64
			stopsRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.DriverID,
			&rec.PickupAddress, &pLat, &pLng,
			&rec.DestinationAddress, &dLat, &dLng,
			&stopsRaw, &rec.DepartureDate, &rec.DepartureTime,
			&seats, &price, &rec.Status); err != nil {
			return nil, err
		}
		rec.PickupLat = nullFloatPtr(pLat)
		rec.PickupLng = nullFloatPtr(pLng)
		rec.DestinationLat = nullFloatPtr(dLat)
		rec.DestinationLng = nullFloatPtr(dLng)
		if seats.Valid {
			v := int(seats.Int64)
			rec.AvailableSeats = &v
		}
		if price.Valid {
			v := price.Float64
			rec.PricePerSeat = &v
		}
		if len(stopsRaw) > 0 {
			// Bad stop JSON loses the stops, not the listing.
			_ = json.Unmarshal(stopsRaw, &rec.Stops)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresListingStore) SaveListing(ctx context.Context, rec models.ListingRecord) error {
	stops, err := json.Marshal(rec.Stops)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO listings(id, driver_id,
			pickup_address, pickup_lat, pickup_lng,
			destination_address, destination_lat, destination_lng,
			stops, departure_date, departure_time,
			available_seats, price_per_seat, status, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)`,
		rec.ID, rec.DriverID,
		rec.PickupAddress, rec.PickupLat, rec.PickupLng,
		rec.DestinationAddress, rec.DestinationLat, rec.DestinationLng,
		stops, rec.DepartureDate, rec.DepartureTime,
		rec.AvailableSeats, rec.PricePerSeat, rec.Status, time.Now())
	return err
}

func (p *PostgresListingStore) UpdateListing(ctx context.Context, rec models.ListingRecord) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE listings
		SET available_seats = $1, price_per_seat = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		rec.AvailableSeats, rec.PricePerSeat, rec.Status, time.Now(), rec.ID)
	return err
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
