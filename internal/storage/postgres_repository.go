package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cliptide/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPostgresUnavailable is returned by Postgres repository methods that have
// not yet been migrated off the JSON store.
var ErrPostgresUnavailable = fmt.Errorf("postgres repository unavailable")

// PostgresConfig tunes the connection pool behind the Postgres repository.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	AcquireTimeout      time.Duration
	ApplicationName     string
}

// PostgresOption mutates the pool configuration.
type PostgresOption func(*PostgresConfig)

// WithPostgresPoolLimits bounds the pool size.
func WithPostgresPoolLimits(maxConns, minConns int32) PostgresOption {
	return func(cfg *PostgresConfig) {
		cfg.MaxConnections = maxConns
		cfg.MinConnections = minConns
	}
}

// WithPostgresPoolDurations configures connection lifetime, idle time, and
// health check cadence.
func WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval time.Duration) PostgresOption {
	return func(cfg *PostgresConfig) {
		cfg.MaxConnLifetime = maxLifetime
		cfg.MaxConnIdleTime = maxIdle
		cfg.HealthCheckInterval = healthInterval
	}
}

// WithPostgresAcquireTimeout bounds how long a request waits for a pooled
// connection.
func WithPostgresAcquireTimeout(timeout time.Duration) PostgresOption {
	return func(cfg *PostgresConfig) {
		cfg.AcquireTimeout = timeout
	}
}

// WithPostgresApplicationName sets application_name on every connection.
func WithPostgresApplicationName(name string) PostgresOption {
	return func(cfg *PostgresConfig) {
		cfg.ApplicationName = name
	}
}

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository. The caller must
// ensure database migrations have been applied prior to invoking this
// constructor.
func NewPostgresRepository(dsn string, opts ...PostgresOption) (Repository, error) {
	cfg := PostgresConfig{DSN: dsn}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &postgresRepository{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

const userColumns = `id, username, email, display_name, avatar_url, cover_url, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.DisplayName,
		&user.AvatarURL,
		&user.CoverURL,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.ToLower(strings.TrimSpace(params.Email))
	displayName := strings.TrimSpace(params.DisplayName)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, errors.New("a valid email is required")
	}
	if displayName == "" {
		displayName = username
	}
	if len(params.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	id := newID("usr")
	row := r.pool.QueryRow(context.Background(), `
INSERT INTO users (id, username, email, display_name, avatar_url, cover_url, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT DO NOTHING
RETURNING `+userColumns+`
`, id, username, email, displayName, strings.TrimSpace(params.AvatarURL), strings.TrimSpace(params.CoverURL), hashed, now)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with that username or email %w", ErrConflict)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) AuthenticateUser(login, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errors.New("password is required")
	}
	user, ok := r.FindUserByLogin(login)
	if !ok {
		return models.User{}, ErrUnknownUser
	}
	if user.PasswordHash == "" {
		return models.User{}, fmt.Errorf("account has no password set")
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *postgresRepository) SetUserPassword(id, password string) (models.User, error) {
	if len(password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	current, ok := r.GetUser(id)
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if current.PasswordHash != "" {
		if err := verifyPassword(current.PasswordHash, password); err == nil {
			return current, nil
		}
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	row := r.pool.QueryRow(context.Background(), `
UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
RETURNING `+userColumns+`
`, id, hashed, time.Now().UTC())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("set password: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	row := r.pool.QueryRow(context.Background(), `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) FindUserByLogin(login string) (models.User, bool) {
	normalized := strings.ToLower(strings.TrimSpace(login))
	if normalized == "" {
		return models.User{}, false
	}
	row := r.pool.QueryRow(context.Background(), `
SELECT `+userColumns+` FROM users WHERE username = $1 OR lower(email) = $1
ORDER BY username = $1 DESC
LIMIT 1
`, normalized)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) ListUsers() []models.User {
	rows, err := r.pool.Query(context.Background(), `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil
		}
		users = append(users, user)
	}
	return users
}

func (r *postgresRepository) UpdateUser(id string, update UserUpdate) (models.User, error) {
	current, ok := r.GetUser(id)
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" || !strings.Contains(email, "@") {
			return models.User{}, errors.New("a valid email is required")
		}
		current.Email = email
	}
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return models.User{}, errors.New("display name cannot be empty")
		}
		current.DisplayName = name
	}
	if update.AvatarURL != nil {
		current.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.CoverURL != nil {
		current.CoverURL = strings.TrimSpace(*update.CoverURL)
	}
	row := r.pool.QueryRow(context.Background(), `
UPDATE users SET email = $2, display_name = $3, avatar_url = $4, cover_url = $5, updated_at = $6
WHERE id = $1
RETURNING `+userColumns+`
`, id, current.Email, current.DisplayName, current.AvatarURL, current.CoverURL, time.Now().UTC())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) DeleteUser(id string) error {
	tag, err := r.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// The media catalog has not been migrated to Postgres yet; deployments that
// need it keep the JSON driver for now.

func (r *postgresRepository) CreateVideo(params CreateVideoParams) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetVideo(id string) (models.Video, bool) {
	return models.Video{}, false
}

func (r *postgresRepository) ListVideos(query VideoQuery) VideoPage {
	return VideoPage{Page: 1, PageSize: defaultVideoPageSize, TotalPages: 1}
}

func (r *postgresRepository) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetVideoPublished(id string, published bool) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteVideo(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) RecordView(videoID, viewerID string) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) WatchHistory(userID string) []models.WatchEntry {
	return nil
}

func (r *postgresRepository) CreateComment(videoID, authorID, content string) (models.Comment, error) {
	return models.Comment{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetComment(id string) (models.Comment, bool) {
	return models.Comment{}, false
}

func (r *postgresRepository) ListComments(videoID string) []models.Comment {
	return nil
}

func (r *postgresRepository) UpdateComment(id, content string) (models.Comment, error) {
	return models.Comment{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteComment(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) ToggleLike(userID, targetKind, targetID string) (bool, error) {
	return false, ErrPostgresUnavailable
}

func (r *postgresRepository) CountLikes(targetKind, targetID string) int {
	return 0
}

func (r *postgresRepository) ListLikedVideos(userID string) []models.Video {
	return nil
}

func (r *postgresRepository) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	return models.Playlist{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetPlaylist(id string) (models.Playlist, bool) {
	return models.Playlist{}, false
}

func (r *postgresRepository) ListPlaylists(ownerID string) []models.Playlist {
	return nil
}

func (r *postgresRepository) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	return models.Playlist{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeletePlaylist(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	return models.Playlist{}, ErrPostgresUnavailable
}

func (r *postgresRepository) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	return models.Playlist{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ToggleSubscription(subscriberID, channelID string) (bool, error) {
	return false, ErrPostgresUnavailable
}

func (r *postgresRepository) ListSubscribers(channelID string) []models.User {
	return nil
}

func (r *postgresRepository) ListSubscribedChannels(subscriberID string) []models.User {
	return nil
}

func (r *postgresRepository) CountSubscribers(channelID string) int {
	return 0
}

func (r *postgresRepository) IsSubscribed(subscriberID, channelID string) bool {
	return false
}

func (r *postgresRepository) CreatePost(authorID, content string) (models.Post, error) {
	return models.Post{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetPost(id string) (models.Post, bool) {
	return models.Post{}, false
}

func (r *postgresRepository) ListPosts(authorID string) []models.Post {
	return nil
}

func (r *postgresRepository) UpdatePost(id, content string) (models.Post, error) {
	return models.Post{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeletePost(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) CountChannelVideos(channelID string) int {
	return 0
}

func (r *postgresRepository) SumChannelViews(channelID string) int64 {
	return 0
}

func (r *postgresRepository) CountChannelLikes(channelID string) int {
	return 0
}

func (r *postgresRepository) CountChannelPosts(channelID string) int {
	return 0
}

var _ Repository = (*postgresRepository)(nil)
