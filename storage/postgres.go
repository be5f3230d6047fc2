package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

// PostgresStore persists properties, images, links and branding in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// seeds the default branding profile and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	if err := ps.seedDefaultBranding(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: seed branding: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS branding_profiles (
			id              TEXT PRIMARY KEY,
			user_id         TEXT        NOT NULL,
			name            TEXT        NOT NULL,
			logo_url        TEXT        NOT NULL DEFAULT '',
			primary_color   TEXT        NOT NULL DEFAULT '',
			header_title    TEXT        NOT NULL DEFAULT '',
			header_subtitle TEXT        NOT NULL DEFAULT '',
			agent_name      TEXT        NOT NULL DEFAULT '',
			agent_role      TEXT        NOT NULL DEFAULT '',
			agent_phone     TEXT        NOT NULL DEFAULT '',
			agent_whatsapp  TEXT        NOT NULL DEFAULT '',
			agent_email     TEXT        NOT NULL DEFAULT '',
			agent_website   TEXT        NOT NULL DEFAULT '',
			is_default      BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS properties (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT        NOT NULL,
			branding_profile_id TEXT        REFERENCES branding_profiles(id),
			source_url          TEXT        NOT NULL,
			title               TEXT        NOT NULL,
			description         TEXT        NOT NULL DEFAULT '',
			price               NUMERIC(14,2),
			currency            VARCHAR(3),
			address             TEXT        NOT NULL DEFAULT '',
			latitude            DOUBLE PRECISION,
			longitude           DOUBLE PRECISION,
			geohash             VARCHAR(12) NOT NULL DEFAULT '',
			bedrooms            INTEGER,
			bathrooms           INTEGER,
			parking             INTEGER,
			built_area          NUMERIC(12,2),
			land_area           NUMERIC(12,2),
			extras              JSONB       NOT NULL DEFAULT '[]',
			branding_override   JSONB,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS property_images (
			id          TEXT PRIMARY KEY,
			property_id TEXT    NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			url         TEXT    NOT NULL,
			sort_order  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS public_links (
			id          TEXT PRIMARY KEY,
			property_id TEXT        NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			slug        TEXT        UNIQUE NOT NULL,
			token       TEXT        NOT NULL DEFAULT '',
			expires_at  TIMESTAMPTZ NOT NULL,
			is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_properties_geohash   ON properties(geohash);
		CREATE INDEX IF NOT EXISTS idx_property_images_prop ON property_images(property_id, sort_order);
		CREATE INDEX IF NOT EXISTS idx_public_links_prop    ON public_links(property_id);
	`)
	return err
}

func (ps *PostgresStore) seedDefaultBranding(ctx context.Context) error {
	if _, err := ps.DefaultBrandingProfileID(ctx); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	b := defaultBrandingProfile(uuid.NewString(), time.Now())
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO branding_profiles (id, user_id, name, logo_url, primary_color, header_title,
			header_subtitle, agent_name, agent_role, agent_phone, agent_whatsapp, agent_email,
			agent_website, is_default, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,TRUE,$14,$15)
	`, b.ID, b.UserID, b.Name, b.LogoURL, b.PrimaryColor, b.HeaderTitle, b.HeaderSubtitle,
		b.AgentName, b.AgentRole, b.AgentPhone, b.AgentWhatsapp, b.AgentEmail, b.AgentWebsite,
		b.CreatedAt, b.UpdatedAt)
	return err
}

// SaveProperty inserts the property, its images and its link in one transaction.
func (ps *PostgresStore) SaveProperty(ctx context.Context, p *models.Property, images []models.PropertyImage, link *models.PublicLink) error {
	extras, err := json.Marshal(nonNilStrings(p.Extras))
	if err != nil {
		return fmt.Errorf("postgres: encode extras: %w", err)
	}
	var override []byte
	if p.BrandingOverride != nil {
		if override, err = json.Marshal(p.BrandingOverride); err != nil {
			return fmt.Errorf("postgres: encode branding override: %w", err)
		}
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (id, user_id, branding_profile_id, source_url, title, description,
			price, currency, address, latitude, longitude, geohash, bedrooms, bathrooms, parking,
			built_area, land_area, extras, branding_override, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`, p.ID, p.UserID, nullString(p.BrandingProfileID), p.SourceURL, p.Title, p.Description,
		p.Price, p.Currency, p.Address, p.Latitude, p.Longitude, p.Geohash,
		p.Bedrooms, p.Bathrooms, p.Parking, p.BuiltArea, p.LandArea,
		string(extras), nullBytes(override), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert property: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(images); i += batchSize {
		end := i + batchSize
		if end > len(images) {
			end = len(images)
		}
		if err := insertImageBatch(ctx, tx, images[i:end]); err != nil {
			return err
		}
	}

	if link != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO public_links (id, property_id, slug, token, expires_at, is_active, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, link.ID, link.PropertyID, link.Slug, link.Token, link.ExpiresAt, link.IsActive, link.CreatedAt)
		if err != nil {
			return fmt.Errorf("postgres: insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertImageBatch(ctx context.Context, tx *sql.Tx, batch []models.PropertyImage) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*4)

	for idx, img := range batch {
		base := idx * 4
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		valueArgs = append(valueArgs, img.ID, img.PropertyID, img.URL, img.SortOrder)
	}

	query := fmt.Sprintf(`
		INSERT INTO property_images (id, property_id, url, sort_order)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert images: %w", err)
	}
	return nil
}

func (ps *PostgresStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var (
		p             models.Property
		brandingID    sql.NullString
		price         sql.NullFloat64
		currency      sql.NullString
		lat, lng      sql.NullFloat64
		beds, baths   sql.NullInt64
		parking       sql.NullInt64
		built, land   sql.NullFloat64
		extras        []byte
		overrideBytes []byte
	)
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, user_id, branding_profile_id, source_url, title, description, price, currency,
			address, latitude, longitude, geohash, bedrooms, bathrooms, parking, built_area,
			land_area, extras, branding_override, created_at, updated_at
		FROM properties WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &brandingID, &p.SourceURL, &p.Title, &p.Description,
		&price, &currency, &p.Address, &lat, &lng, &p.Geohash, &beds, &baths, &parking,
		&built, &land, &extras, &overrideBytes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get property: %w", err)
	}

	p.BrandingProfileID = brandingID.String
	p.Price = floatPtr(price)
	if currency.Valid {
		p.Currency = &currency.String
	}
	p.Latitude, p.Longitude = floatPtr(lat), floatPtr(lng)
	p.Bedrooms, p.Bathrooms, p.Parking = intPtr(beds), intPtr(baths), intPtr(parking)
	p.BuiltArea, p.LandArea = floatPtr(built), floatPtr(land)
	if err := json.Unmarshal(extras, &p.Extras); err != nil {
		return nil, fmt.Errorf("postgres: decode extras: %w", err)
	}
	if len(overrideBytes) > 0 {
		p.BrandingOverride = &models.BrandingOverride{}
		if err := json.Unmarshal(overrideBytes, p.BrandingOverride); err != nil {
			return nil, fmt.Errorf("postgres: decode branding override: %w", err)
		}
	}

	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, property_id, url, sort_order
		FROM property_images
		WHERE property_id = $1
		ORDER BY sort_order
	`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.URL, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("postgres: scan image: %w", err)
		}
		p.Images = append(p.Images, img)
	}
	return &p, rows.Err()
}

func (ps *PostgresStore) GetPublicLink(ctx context.Context, slug string) (*models.PublicLink, error) {
	var l models.PublicLink
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, property_id, slug, token, expires_at, is_active, created_at
		FROM public_links WHERE slug = $1
	`, slug).Scan(&l.ID, &l.PropertyID, &l.Slug, &l.Token, &l.ExpiresAt, &l.IsActive, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get link: %w", err)
	}
	return &l, nil
}

func (ps *PostgresStore) GetBrandingProfile(ctx context.Context, id string) (*models.BrandingProfile, error) {
	var b models.BrandingProfile
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, logo_url, primary_color, header_title, header_subtitle,
			agent_name, agent_role, agent_phone, agent_whatsapp, agent_email, agent_website,
			created_at, updated_at
		FROM branding_profiles WHERE id = $1
	`, id).Scan(&b.ID, &b.UserID, &b.Name, &b.LogoURL, &b.PrimaryColor, &b.HeaderTitle,
		&b.HeaderSubtitle, &b.AgentName, &b.AgentRole, &b.AgentPhone, &b.AgentWhatsapp,
		&b.AgentEmail, &b.AgentWebsite, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get branding profile: %w", err)
	}
	return &b, nil
}

func (ps *PostgresStore) DefaultBrandingProfileID(ctx context.Context) (string, error) {
	var id string
	err := ps.db.QueryRowContext(ctx,
		`SELECT id FROM branding_profiles WHERE is_default ORDER BY created_at LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: default branding: %w", err)
	}
	return id, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
