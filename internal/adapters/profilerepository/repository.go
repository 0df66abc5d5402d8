package profilerepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/beacon/internal/domain"
	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const DATA_FORMAT_VERSION = 1

type PostgresProfileRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresProfileRepository(db *sqlx.DB, schema string) *PostgresProfileRepository {
	return &PostgresProfileRepository{db, schema}
}

type profileDataStorage struct {
	Username   string   `json:"name,omitempty"`
	Experience float64  `json:"xp,omitempty"`
	GamesOwned []string `json:"games,omitempty"`
	LastLogin  *int64   `json:"lastLogin,omitempty"`
}

type dbProfile struct {
	ID                string    `db:"id"`
	DataFormatVersion int       `db:"data_format_version"`
	UUID              string    `db:"player_uuid"`
	QueriedAt         time.Time `db:"queried_at"`
	ProfileData       []byte    `db:"profile_data"`
}

func profileToDataStorage(profile *domain.Profile) ([]byte, error) {
	var lastLogin *int64
	if profile.LastLogin != nil {
		l := profile.LastLogin.UnixMilli()
		lastLogin = &l
	}

	data := profileDataStorage{
		Username:   profile.Username,
		Experience: profile.Experience,
		GamesOwned: profile.GamesOwned,
		LastLogin:  lastLogin,
	}

	json, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data storage: %w", err)
	}
	return json, nil
}

func dbProfileToDomainProfile(dbProfile dbProfile) (*domain.Profile, error) {
	var profileData profileDataStorage
	err := json.Unmarshal(dbProfile.ProfileData, &profileData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile data: %w", err)
	}

	var lastLogin *time.Time
	if profileData.LastLogin != nil {
		l := time.UnixMilli(*profileData.LastLogin)
		lastLogin = &l
	}

	return &domain.Profile{
		UUID:       dbProfile.UUID,
		Username:   profileData.Username,
		QueriedAt:  dbProfile.QueriedAt,
		Experience: profileData.Experience,
		GamesOwned: profileData.GamesOwned,
		LastLogin:  lastLogin,
	}, nil
}

func (p *PostgresProfileRepository) StoreProfile(ctx context.Context, profile *domain.Profile) error {
	if profile == nil {
		err := fmt.Errorf("profile is nil")
		reporting.Report(ctx, err)
		return err
	}

	profileData, err := profileToDataStorage(profile)
	if err != nil {
		err := fmt.Errorf("failed to convert profile to data storage: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}

	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}

	// Don't store near-duplicates from concurrent resolves
	var count int
	err = txx.QueryRowxContext(
		ctx,
		"SELECT COUNT(*) FROM profiles WHERE player_uuid = $1 AND queried_at > $2",
		profile.UUID,
		profile.QueriedAt.Add(-time.Minute),
	).Scan(&count)
	if err != nil {
		err := fmt.Errorf("failed to query recent entries: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = txx.ExecContext(
		ctx,
		`INSERT INTO profiles
		(id, player_uuid, profile_data, queried_at, data_format_version)
		VALUES ($1, $2, $3, $4, $5)`,
		dbID.String(),
		profile.UUID,
		profileData,
		profile.QueriedAt,
		DATA_FORMAT_VERSION,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert new profile: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"uuid": profile.UUID,
		})
		return err
	}

	logging.FromContext(ctx).Info("Stored profile", "dataFormatVersion", DATA_FORMAT_VERSION)

	return nil
}

func (p *PostgresProfileRepository) GetProfiles(ctx context.Context, playerUUIDs []string, since time.Time) (map[string]*domain.Profile, error) {
	profiles := make(map[string]*domain.Profile)
	if len(playerUUIDs) == 0 {
		return profiles, nil
	}

	txx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return nil, err
	}

	query, args, err := sqlx.In(
		`SELECT DISTINCT ON (player_uuid)
			id, data_format_version, player_uuid, queried_at, profile_data
		FROM profiles
		WHERE
			player_uuid IN (?) AND
			queried_at > ?
		ORDER BY player_uuid, queried_at DESC`,
		playerUUIDs,
		since,
	)
	if err != nil {
		err := fmt.Errorf("failed to expand query: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	dbProfiles := make([]dbProfile, 0, len(playerUUIDs))
	err = txx.SelectContext(ctx, &dbProfiles, txx.Rebind(query), args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		err := fmt.Errorf("failed to select profiles: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	for _, dbProfile := range dbProfiles {
		if dbProfile.DataFormatVersion != DATA_FORMAT_VERSION {
			// Rows written by a newer deployment are skipped rather than
			// misread; the resolver treats them as misses.
			logging.FromContext(ctx).Warn(
				"Skipping profile with unknown data format version",
				"uuid", dbProfile.UUID,
				"dataFormatVersion", dbProfile.DataFormatVersion,
			)
			continue
		}

		profile, err := dbProfileToDomainProfile(dbProfile)
		if err != nil {
			err := fmt.Errorf("failed to convert db profile: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"uuid": dbProfile.UUID,
			})
			return nil, err
		}
		profiles[profile.UUID] = profile
	}

	return profiles, nil
}
