package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/logger"
	"github.com/wolfeidau/logicore/internal/server"
	"github.com/wolfeidau/logicore/internal/store"
	memorystore "github.com/wolfeidau/logicore/internal/store/memory"
	postgresstore "github.com/wolfeidau/logicore/internal/store/postgres"
	"github.com/wolfeidau/logicore/internal/telemetry"
	"github.com/wolfeidau/logicore/internal/token"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"LOGICORE_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"LOGICORE_CORS_ORIGINS"`

	// Token configuration
	TokenSigningSecret string        `help:"secret key for HMAC signing of identity tokens" env:"LOGICORE_TOKEN_SECRET"`
	TokenTTL           time.Duration `help:"identity token lifetime" default:"24h" env:"LOGICORE_TOKEN_TTL"`
	TokenIssuer        string        `help:"issuer claim for identity tokens" default:"logicore" env:"LOGICORE_TOKEN_ISSUER"`

	// SSO configuration
	SSOSecretKey string `help:"key material for encrypting stored SSO client secrets" env:"LOGICORE_SSO_SECRET_KEY"`

	// DefaultOrgID enables the legacy fallback: requests without a token are
	// admitted as an anonymous member of this organization.
	DefaultOrgID string `help:"organization ID for the legacy no-token fallback (empty disables it)" default:"" env:"LOGICORE_DEFAULT_ORG_ID"`

	// Operational modes
	Tracing bool `help:"enable tracing" default:"false" env:"LOGICORE_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"LOGICORE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"LOGICORE_POSTGRES_AUTO_MIGRATE"`
}

func (c *ServerCmd) Validate() error {
	if c.TokenSigningSecret == "" {
		return errors.New("token signing secret is required (--token-signing-secret or LOGICORE_TOKEN_SECRET)")
	}
	if len(c.TokenSigningSecret) < 32 {
		return errors.New("token signing secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	if c.SSOSecretKey == "" {
		return errors.New("SSO secret key is required (--sso-secret-key or LOGICORE_SSO_SECRET_KEY)")
	}
	if c.StoreType == "postgres" && c.PostgresStore.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Dev)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("dev", globals.Dev).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "logicore-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	var defaultOrgID uuid.UUID
	if c.DefaultOrgID != "" {
		parsed, err := uuid.Parse(c.DefaultOrgID)
		if err != nil {
			return fmt.Errorf("invalid default org ID: %w", err)
		}
		defaultOrgID = parsed
		log.Warn().Str("org_id", c.DefaultOrgID).Msg("Legacy no-token fallback is enabled")
	}

	// Create stores based on store type
	var (
		users       store.UserStore
		orgs        store.OrganizationStore
		memberships store.MembershipStore
		requests    store.AccessRequestStore
		ssoConfigs  store.SSOConfigStore
		invitations store.InvitationStore
		documents   store.DocumentStore
	)

	switch c.StoreType {
	case "postgres":
		// Shared connection pool for all PostgreSQL stores
		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		users = postgresstore.NewUserStore(pool)
		orgs = postgresstore.NewOrganizationStore(pool)
		memberships = postgresstore.NewMembershipStore(pool)
		requests = postgresstore.NewAccessRequestStore(pool)
		ssoConfigs = postgresstore.NewSSOConfigStore(pool)
		invitations = postgresstore.NewInvitationStore(pool)
		documents = postgresstore.NewDocumentStore(pool)

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		memUsers := memorystore.NewUserStore()
		memMemberships := memorystore.NewMembershipStore(memUsers)
		memOrgs := memorystore.NewOrganizationStore(memMemberships)

		users = memUsers
		orgs = memOrgs
		memberships = memMemberships
		requests = memorystore.NewAccessRequestStore(memMemberships)
		ssoConfigs = memorystore.NewSSOConfigStore(memOrgs)
		invitations = memorystore.NewInvitationStore(memUsers, memMemberships)
		documents = memorystore.NewDocumentStore()

		log.Info().Msg("Using in-memory stores")
	}

	codec, err := token.NewCodec([]byte(c.TokenSigningSecret), c.TokenIssuer, c.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	gateway := auth.NewGateway(auth.GatewayConfig{
		Codec:        codec,
		Memberships:  memberships,
		PublicPaths:  auth.DefaultPublicPaths(),
		DefaultOrgID: defaultOrgID,
	})

	authService := server.NewAuthService(codec, users, orgs, memberships)

	srv := server.NewServer(
		gateway,
		authService,
		server.NewIdentityService(codec, users, orgs, invitations, authService),
		server.NewSSOService(ssoConfigs, users, orgs, memberships, requests, authService, c.SSOSecretKey),
		server.NewSSOSettingsService(ssoConfigs, c.SSOSecretKey),
		server.NewAccessRequestService(requests, orgs, memberships, users),
		server.NewOrganizationService(orgs),
		server.NewMemberService(memberships),
		server.NewDocumentService(documents),
	)

	handler := server.WithCORS(srv.Handler(log), c.CORSOrigins)

	log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
	return configureHTTPServer(c.Listen, handler).ListenAndServe()
}
